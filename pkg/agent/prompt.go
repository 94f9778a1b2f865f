package agent

import "fmt"

const promptTemplate = `Persona: %s
Objective: %s

Guidelines:
1. Break the task into logical steps and execute them methodically until the objective is achieved. Do not attempt to solve it before breaking it into steps.
2. Provide the breakdown of steps as your thought process in the first response.
3. Use only the provided tools and avoid unnecessary or improvised function calls. When a tool can help, give your reasoning first and then invoke the tool.
4. Include thoughtProcess in intermediate responses but omit it from the final answer.
5. Mark the completion of the task by setting "stop": true.

Responses must be JSON objects with these fields:
- thoughtProcess: a concise explanation of reasoning and next steps (intermediate responses only).
- output: the complete, user-friendly answer (final response only).
- stop: false for intermediate responses, true for the final one.

While processing: {"thoughtProcess": "<reasoning>", "stop": false}
Upon completion: {"output": "<final result>", "stop": true}`

// BuildPrompt returns the system prompt for cfg. An explicit Prompt wins.
func BuildPrompt(cfg Config) string {
	if cfg.Prompt != "" {
		return cfg.Prompt
	}
	return fmt.Sprintf(promptTemplate, cfg.Persona, cfg.Goal)
}
