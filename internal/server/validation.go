package server

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	payloadValidator     *validator.Validate
	payloadValidatorOnce sync.Once
)

func getPayloadValidator() *validator.Validate {
	payloadValidatorOnce.Do(func() {
		payloadValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	return payloadValidator
}

// createRecommendationPayload accepts the link as youtubeLink or, from older forms, link.
type createRecommendationPayload struct {
	Name        string `json:"name"`
	YoutubeLink string `json:"youtubeLink"`
	Link        string `json:"link"`
}

type recommendationDraft struct {
	Name string `validate:"required,max=190"`
	Link string `validate:"required,max=512,http_url"`
}

func (p createRecommendationPayload) draft() recommendationDraft {
	link := strings.TrimSpace(p.YoutubeLink)
	if link == "" {
		link = strings.TrimSpace(p.Link)
	}
	return recommendationDraft{
		Name: strings.TrimSpace(p.Name),
		Link: link,
	}
}

// validateDraft returns an error reason for the first failing field, or "".
func validateDraft(draft recommendationDraft) string {
	err := getPayloadValidator().Struct(draft)
	if err == nil {
		return ""
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return "invalid_request"
	}
	switch fieldErrors[0].Field() {
	case "Name":
		return "invalid_name"
	case "Link":
		return "invalid_youtube_link"
	default:
		return "invalid_request"
	}
}
