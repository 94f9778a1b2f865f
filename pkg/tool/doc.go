// Package tool defines schema-validated callables that an agent can dispatch.
//
// Invariants:
// - Name, description and config are present at construction.
// - Declared secrets are checked before required input properties.
// - Implementation failures surface as errs.ErrExecution, never raw.
//
// Usage:
//
//	echo, _ := tool.New("echo", "Echo input", &tool.Config{
//		Properties: map[string]tool.Property{
//			"text": {Type: "string", Description: "text to echo", Required: true},
//		},
//	}, func(ctx context.Context, input map[string]interface{}, secrets map[string]string) (string, error) {
//		return fmt.Sprint(input["text"]), nil
//	})
//	out, err := echo.Execute(ctx, map[string]interface{}{"text": "hi"}, nil)
package tool
