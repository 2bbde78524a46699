// Copyright 2025 Joseph Cumines
//
// Helper functions for tool handlers

package server

import (
	"fmt"
	"slices"
	"strings"

	"github.com/joeycumines/MacosPimSDK/internal/apple"
	"github.com/joeycumines/MacosPimSDK/internal/transport"
)

// maxDisplayTextLen is the maximum length for text shown in result summaries.
// Longer text is truncated with "..." suffix.
const maxDisplayTextLen = 120

// truncateText truncates text to maxDisplayTextLen characters with "..." suffix if needed.
func truncateText(s string) string {
	if len(s) > maxDisplayTextLen {
		return s[:maxDisplayTextLen] + "..."
	}
	return s
}

// errorResult creates a ToolResult with IsError=true and the given message.
func errorResult(msg string) *ToolResult {
	return &ToolResult{
		IsError: true,
		Content: []Content{{Type: "text", Text: msg}},
	}
}

// errorResultf creates a ToolResult with IsError=true and a formatted message.
func errorResultf(format string, args ...any) *ToolResult {
	return errorResult(fmt.Sprintf(format, args...))
}

// textResult creates a ToolResult with a single text content.
func textResult(text string) *ToolResult {
	return &ToolResult{
		Content: []Content{{Type: "text", Text: text}},
	}
}

// textResultf creates a ToolResult with a formatted text content.
func textResultf(format string, args ...any) *ToolResult {
	return textResult(fmt.Sprintf(format, args...))
}

// formatAutomationError formats an osascript failure with context for MCP
// tool responses, providing actionable suggestions for the common failure
// modes (missing TCC permission, Apple event timeout).
func formatAutomationError(err error, toolName string) string {
	if err == nil {
		return ""
	}

	suggestion := ""
	switch {
	case apple.IsPermissionDenied(err):
		suggestion = "Grant access in System Settings > Privacy & Security > Automation (and the relevant app's data category)"
	case apple.IsTimeout(err):
		suggestion = "The target application did not respond in time. Make sure it is running and try again"
	}

	result := fmt.Sprintf("Error in %s: %s", toolName, err.Error())
	if suggestion != "" {
		result += fmt.Sprintf("\nSuggestion: %s", suggestion)
	}
	return result
}

// validateToolInput validates JSON arguments against a tool's InputSchema.
// It checks required fields, basic JSON Schema types (string, number,
// integer, boolean, array, object), and enum membership. Extra properties
// not defined in the schema are allowed.
//
// Returns a JSON-RPC error response with ErrCodeInvalidParams if validation
// fails, nil if it passes.
func validateToolInput(toolName string, args map[string]any, tools map[string]*Tool) *transport.Message {
	tool, ok := tools[toolName]
	if !ok {
		// Unknown tool is handled by the caller.
		return nil
	}

	schema := tool.InputSchema
	if schema == nil {
		return nil
	}

	for _, field := range requiredFields(schema) {
		if _, exists := args[field]; !exists {
			return invalidParamsError(fmt.Sprintf("missing required field: %s", field))
		}
	}

	properties := schemaProperties(schema)
	for fieldName, value := range args {
		propSchema, exists := properties[fieldName]
		if !exists {
			continue
		}
		if err := validateFieldValue(fieldName, value, propSchema); err != nil {
			return invalidParamsError(err.Error())
		}
	}

	return nil
}

// invalidParamsError creates a JSON-RPC error response with ErrCodeInvalidParams.
func invalidParamsError(message string) *transport.Message {
	return &transport.Message{
		JSONRPC: "2.0",
		Error: &transport.ErrorObj{
			Code:    transport.ErrCodeInvalidParams,
			Message: message,
		},
	}
}

// requiredFields extracts the "required" array from a JSON schema, handling
// both []string (as registered) and []any (from JSON unmarshaling).
func requiredFields(schema map[string]any) []string {
	switch required := schema["required"].(type) {
	case []string:
		return required
	case []any:
		result := make([]string, 0, len(required))
		for _, v := range required {
			if s, ok := v.(string); ok {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}

// schemaProperties extracts the "properties" map from a JSON schema.
func schemaProperties(schema map[string]any) map[string]map[string]any {
	propsMap, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil
	}

	result := make(map[string]map[string]any, len(propsMap))
	for k, v := range propsMap {
		if propSchema, ok := v.(map[string]any); ok {
			result[k] = propSchema
		}
	}
	return result
}

// validateFieldValue validates a single field value against its property schema.
func validateFieldValue(fieldName string, value any, propSchema map[string]any) error {
	// Null values pass; required presence is checked separately.
	if value == nil {
		return nil
	}

	if schemaType, ok := propSchema["type"].(string); ok {
		if err := validateType(fieldName, value, schemaType); err != nil {
			return err
		}
	}

	return validateEnumValue(fieldName, value, propSchema)
}

// validateType validates that a value matches the expected JSON Schema type.
func validateType(fieldName string, value any, expectedType string) error {
	switch expectedType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field %q must be a string, got %T", fieldName, value)
		}
	case "number":
		if !isNumber(value) {
			return fmt.Errorf("field %q must be a number, got %T", fieldName, value)
		}
	case "integer":
		if !isInteger(value) {
			return fmt.Errorf("field %q must be an integer, got %T", fieldName, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field %q must be a boolean, got %T", fieldName, value)
		}
	case "array":
		if _, ok := value.([]any); !ok {
			return fmt.Errorf("field %q must be an array, got %T", fieldName, value)
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("field %q must be an object, got %T", fieldName, value)
		}
	}
	return nil
}

func isNumber(value any) bool {
	switch value.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

// isInteger reports whether the value is a whole number. JSON unmarshaling
// produces float64 for all numbers, so whole float64 values count.
func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return v == float64(int64(v))
	case float32:
		return v == float32(int32(v))
	default:
		return false
	}
}

// validateEnumValue validates that a value is in the allowed enum set.
// Enums may be []string (as registered) or []any (from JSON unmarshaling).
func validateEnumValue(fieldName string, value any, propSchema map[string]any) error {
	switch enumValues := propSchema["enum"].(type) {
	case []string:
		valueStr, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %q must be a string for enum validation, got %T", fieldName, value)
		}
		if slices.Contains(enumValues, valueStr) {
			return nil
		}
		return fmt.Errorf("field %q must be one of [%s], got %q", fieldName, strings.Join(enumValues, ", "), valueStr)
	case []any:
		allowedStrs := make([]string, 0, len(enumValues))
		for _, allowed := range enumValues {
			if value == allowed {
				return nil
			}
			allowedStrs = append(allowedStrs, fmt.Sprintf("%v", allowed))
		}
		return fmt.Errorf("field %q must be one of [%s], got %v", fieldName, strings.Join(allowedStrs, ", "), value)
	default:
		return nil
	}
}
