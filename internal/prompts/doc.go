// Package prompts contains the LLM prompt templates Ayla composes at
// request time.
//
// Prompt text is Go code rather than config files because it is program
// logic: templates use fmt.Sprintf interpolation, benefit from
// compile-time embedding, and can be validated by tests. The persona
// prompts operators can edit live in the agents store; this package
// holds the fixed instructions appended to every persona plus the
// degraded-path texts.
//
// Convention: each prompt category gets its own file with an exported
// function that accepts the dynamic parts and returns the fully
// interpolated prompt string.
package prompts
