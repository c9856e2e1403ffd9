package answerctx

import "errors"

// ErrUnanswerable is returned when Succeed is called but the
// question's QueryAnswer reports it has no native answer.
var ErrUnanswerable = errors.New("answerctx: question has no native answer")
