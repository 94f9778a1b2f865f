// Package agent drives the conversation between a user, a model gateway and
// a set of tools.
//
// Invariants:
// - The transcript is append-only and persists across Execute calls.
// - The system prompt is seeded once, when the transcript is empty.
// - Only the first tool call of a turn is honored.
// - A call makes at most MaxIterations+1 model calls.
// - Execute calls on one Agent are serialized.
//
// Usage:
//
//	a, _ := agent.New("weather", agent.Config{
//		Persona: "You are a weather assistant",
//		Goal:    "Answer questions about the weather",
//		Secrets: map[string]string{"OPENAI_API_KEY": key},
//	})
//	a.RegisterTool(coretools.WeatherGov(nil, ""))
//	answer, err := a.Execute(ctx, "What is the weather in Boston?")
package agent
