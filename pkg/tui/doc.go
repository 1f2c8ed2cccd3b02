// Package tui fills a form session from the terminal.
//
// The runner reads the session's render set after every answer, so fields
// and steps that appear or disappear because of an earlier answer are picked
// up on the next prompt. Prompts go through a PromptDriver; SurveyDriver is
// the interactive implementation and tests script their own.
package tui
