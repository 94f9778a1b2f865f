package coretools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harun/neuron/pkg/tool"
)

// ClockToolName is the name advertised to the model
const ClockToolName = "current_time"

// CurrentTime returns a tool reporting the current time, optionally in an IANA time zone
func CurrentTime(now func() time.Time) *tool.Tool {
	if now == nil {
		now = time.Now
	}

	return mustTool(ClockToolName, "Returns the current date and time.", &tool.Config{
		Properties: map[string]tool.Property{
			"timezone": {Type: "string", Description: "IANA time zone such as America/New_York; defaults to UTC"},
		},
	}, func(ctx context.Context, input map[string]interface{}, secrets map[string]string) (string, error) {
		zone, _ := input["timezone"].(string)
		zone = strings.TrimSpace(zone)
		if zone == "" {
			zone = "UTC"
		}

		loc, err := time.LoadLocation(zone)
		if err != nil {
			return "", fmt.Errorf("unknown time zone %q", zone)
		}

		return fmt.Sprintf("Current time in %s is %s", zone, now().In(loc).Format(time.RFC1123)), nil
	})
}
