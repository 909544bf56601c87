package app

import (
	"fmt"
	"net/http"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func errPlanClosed(planID string) *DomainError {
	return domainError(http.StatusConflict, "PLAN_CLOSED", "The plan deadline has passed", map[string]any{"planId": planID})
}

func errValidation(field, message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_FAILED", message, map[string]any{"field": field})
}

func errForbidden() *DomainError {
	return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
}
