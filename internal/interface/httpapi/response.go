package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jinford/campus-ai/internal/core/account"
	"github.com/jinford/campus-ai/internal/core/aitask"
	"github.com/jinford/campus-ai/internal/core/marketplace"
)

// エラーコード
const (
	codeInvalidArgument = "invalid_argument"
	codeValidation      = "validation_error"
	codeUnauthenticated = "unauthenticated"
	codeNotFound        = "not_found"
	codeInternal        = "internal"
)

// errInvalidBody はリクエストボディを解釈できない場合のエラー
var errInvalidBody = errors.New("invalid request body")

// APIError はエラーレスポンスの本体
type APIError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

// FieldError はフィールド単位の検証エラー
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorEnvelope{Error: APIError{Code: code, Message: message}})
}

// respondError はエラーを HTTP ステータスに変換して返す
func (s *Server) respondError(c *gin.Context, err error) {
	status, apiErr := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("リクエストの処理に失敗しました", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, errorEnvelope{Error: apiErr})
}

func mapError(err error) (int, APIError) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]FieldError, 0, len(validationErrs))
		for _, fe := range validationErrs {
			details = append(details, FieldError{
				Field:   fe.Field(),
				Message: fmt.Sprintf("failed on '%s' validation", fe.Tag()),
			})
		}
		return http.StatusBadRequest, APIError{
			Code:    codeValidation,
			Message: "Validation failed",
			Details: details,
		}
	}

	switch {
	case errors.Is(err, errInvalidBody):
		return http.StatusBadRequest, APIError{Code: codeInvalidArgument, Message: "The request body is invalid"}
	case errors.Is(err, marketplace.ErrUnauthenticated):
		return http.StatusUnauthorized, APIError{Code: codeUnauthenticated, Message: "Authentication required"}
	case errors.Is(err, marketplace.ErrNotFound):
		return http.StatusNotFound, APIError{Code: codeNotFound, Message: "Listing not found"}
	case errors.Is(err, marketplace.ErrInvalidArgument), errors.Is(err, account.ErrInvalidArgument):
		return http.StatusBadRequest, APIError{Code: codeInvalidArgument, Message: err.Error()}
	default:
		return http.StatusInternalServerError, APIError{Code: codeInternal, Message: "An unexpected error occurred"}
	}
}

// resultStatus はタスク処理結果の HTTP ステータスを返す
//
// processing はタスクが failed に更新済みで再送しても結果が変わらないため 200 を返す。
func resultStatus(r aitask.Result) int {
	if r.Status != aitask.OutcomeError {
		return http.StatusOK
	}
	switch r.Kind {
	case aitask.KindValidation:
		return http.StatusBadRequest
	case aitask.KindNotFound:
		return http.StatusNotFound
	case aitask.KindUnknownType:
		return http.StatusUnprocessableEntity
	case aitask.KindProcessing:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}
