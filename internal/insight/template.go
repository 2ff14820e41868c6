package insight

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/marketing-insight/backend/internal/storage/models"
)

var (
	ErrTemplateNotFound = errors.New("prompt template not found")
	ErrTemplateInactive = errors.New("prompt template is inactive")
)

type TemplateStore interface {
	GetPromptTemplate(id string) (*models.PromptTemplate, error)
}

// TemplateResolver produces the final prompt text: an explicit prompt wins,
// then a stored template by id, then the built-in default for the insight
// type. All three paths go through variable substitution.
type TemplateResolver struct {
	store TemplateStore
}

func NewTemplateResolver(store TemplateStore) *TemplateResolver {
	return &TemplateResolver{store: store}
}

type PromptRequest struct {
	Type           Type
	ExplicitPrompt string
	TemplateID     string
	Variables      map[string]interface{}
	WeeklyData     interface{}
}

func (r *TemplateResolver) ResolvePrompt(req PromptRequest) (string, error) {
	variables := make(map[string]interface{}, len(req.Variables)+1)
	for k, v := range req.Variables {
		variables[k] = v
	}

	weeklyJSON, err := json.Marshal(req.WeeklyData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal weekly data: %w", err)
	}
	variables["weeklyData"] = string(weeklyJSON)

	if req.ExplicitPrompt != "" {
		return substitute(req.ExplicitPrompt, variables), nil
	}

	if req.TemplateID != "" {
		template, err := r.store.GetPromptTemplate(req.TemplateID)
		if err != nil {
			return "", err
		}
		if template == nil {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, req.TemplateID)
		}
		if !template.IsActive {
			return "", fmt.Errorf("%w: %s", ErrTemplateInactive, req.TemplateID)
		}
		return substitute(template.Prompt, variables), nil
	}

	return substitute(defaultPrompt(req.Type), variables), nil
}

// substitute replaces every {key} placeholder with the string form of the
// variable. Placeholders without a matching variable are left verbatim.
func substitute(template string, variables map[string]interface{}) string {
	result := template
	for key, value := range variables {
		result = strings.ReplaceAll(result, "{"+key+"}", fmt.Sprintf("%v", value))
	}
	return result
}
