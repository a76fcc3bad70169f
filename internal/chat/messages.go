package chat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ashureev/biabot/internal/domain"
)

const (
	msgWelcome          = "Hi, I am biaBot. Please share your client code so I can start your intake."
	msgNewChat          = "New chat started. Please share your client code to begin, for example READYONE01."
	msgSignedOut        = "You are signed out. Share a client code when you want to start again."
	msgHelp             = "I can verify your client code, collect your intake details in natural language, summarize everything, and submit it to Monday."
	msgNeedCode         = "Please share your client code when you are ready (example: READYONE01)."
	msgLostState        = "I lost the intake flow state. Let us pick the service again."
	msgNoQuestions      = "I do not have questions configured for that service yet."
	msgFixDetails       = "I need a few details corrected before I can generate your summary. Please check your due date and required fields."
	msgConfirmAmbiguous = "Type Submit to send this request, or Restart to begin again."
	msgDoneIdle         = "Type Start New Request when you want to create another intake."
	msgNewRequest       = "Ready for a new request. What service should we start with?"
	msgEditAnswers      = "No problem. Let us walk through your answers again."
	msgSupportHint      = "If it still does not work, contact your account manager for a new code."
)

const (
	suggestSubmit     = "Submit"
	suggestRestart    = "Restart"
	suggestNewRequest = "Start New Request"
)

var (
	helpPattern    = regexp.MustCompile(`(?i)^\s*(help|\?|what can you do\??|how does this work\??)\s*$`)
	logoutPattern  = regexp.MustCompile(`(?i)^\s*(logout|log out|sign out|signout)\s*[.!]?\s*$`)
	submitPattern  = regexp.MustCompile(`(?i)\b(yes|y|submit|confirm|ok|okay|send|go ahead)\b`)
	restartPattern = regexp.MustCompile(`(?i)\b(restart|edit|start over|change)\b`)
	newReqPattern  = regexp.MustCompile(`(?i)\b(start new request|new request|another request)\b`)
	codeShape      = regexp.MustCompile(`^[A-Za-z0-9_-]{3,64}$`)
)

var codeRetryVariants = []string{
	"I am still unable to verify that client code. Please double-check it and try again.",
	"I still cannot match that client code. Please send the exact code exactly as provided.",
	"That code is not matching yet. Re-enter the exact client code and I will continue.",
}

// codeRetryMessage escalates with the attempt count. preferred is the best
// extracted candidate that differs from the raw message, if any.
func codeRetryMessage(attempts int, preferred string) string {
	switch {
	case attempts <= 1:
		return "I could not verify that code yet. Please share the exact client code you received (example: READYONE01)."
	case preferred != "" && attempts == 2:
		return fmt.Sprintf("I still could not verify %q. Please resend the exact code without extra words if possible.", preferred)
	}
	msg := codeRetryVariants[(attempts-2)%len(codeRetryVariants)]
	if attempts >= 3 {
		msg += " " + msgSupportHint
	}
	return msg
}

func serviceRetryMessage(attempts int, options []string) string {
	switch {
	case attempts <= 1:
		return "I did not catch the service type. Please choose one of these options."
	case attempts == 2 && len(options) > 0:
		return fmt.Sprintf("I still could not map that service. Please choose the closest match from the list, for example %q.", options[0])
	}
	return "I am still not matching the service correctly. Pick one option below and I will continue."
}

func questionPrompt(q domain.Question, serviceType string) string {
	switch q.ID {
	case "project_title":
		service := strings.ToLower(serviceType)
		if service == "" {
			service = "this"
		}
		return fmt.Sprintf("What should we call this %s request?", service)
	case "goal":
		return "What outcome are you aiming for?"
	case "target_audience":
		return "Who is the target audience?"
	case "primary_cta":
		return "What is the primary call to action?"
	case "due_date":
		return "When do you want this delivered?"
	case "approver":
		return "Who should approve this request?"
	case "required_elements":
		return "Are there required elements to include (logos, disclaimers, QR code, etc.)?"
	case "references":
		return "Any references or links I should use? This is optional."
	case "uploaded_files":
		return "Do you want to attach any files or links? This is optional."
	}

	if q.Type == domain.QuestionChoice && len(q.Options) > 0 {
		return fmt.Sprintf("%s Please choose one: %s.", q.Label, strings.Join(q.Options, ", "))
	}
	prompt := fmt.Sprintf("Could you share: %s?", q.Label)
	if !q.Required {
		prompt += " This is optional."
	}
	return prompt
}

func questionSuggestions(q domain.Question) []string {
	out := append([]string(nil), q.Options...)
	if !q.Required && q.Type != domain.QuestionChoice {
		out = append(out, "skip")
	}
	return out
}

func summaryMessage(summary string) string {
	return "Great, I have everything I need.\n\nMission Summary\n\n" + summary + "\n\nWould you like me to submit this request now?"
}

func submittedMessage(requestID, itemID string, mock bool) string {
	mode := "No"
	if mock {
		mode = "Yes"
	}
	return fmt.Sprintf("Submitted successfully.\nRequest ID: %s\nMonday Item: %s\nMock Mode: %s", requestID, itemID, mode)
}

func welcomeBack(name string) string {
	return fmt.Sprintf("Welcome back, %s. What kind of support do you need today?", name)
}

type intent int

const (
	intentNone intent = iota
	intentSubmit
	intentRestart
)

// confirmationIntent checks restart first so that "yes, but change the title"
// goes back to editing.
func confirmationIntent(message string) intent {
	switch {
	case restartPattern.MatchString(message):
		return intentRestart
	case submitPattern.MatchString(message):
		return intentSubmit
	}
	return intentNone
}
