package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const maxBodyBytes = 1 << 20

const profileSchema = `{
	"type": "object",
	"properties": {
		"dateOfBirth":   {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
		"nationality":   {"type": "string", "maxLength": 64},
		"maritalStatus": {"type": "string", "maxLength": 64}
	},
	"additionalProperties": false
}`

var (
	startSchema = mustSchema(`{
		"type": "object",
		"required": ["caseId"],
		"properties": {
			"userId":  {"type": "string", "maxLength": 128},
			"caseId":  {"type": "string", "minLength": 1, "maxLength": 128},
			"profile": ` + profileSchema + `
		}
	}`)

	answerSchema = mustSchema(`{
		"type": "object",
		"required": ["sessionId", "questionKey", "answerValue"],
		"properties": {
			"sessionId":   {"type": "string", "format": "uuid"},
			"questionKey": {"type": "string", "minLength": 1, "maxLength": 64},
			"answerValue": {"type": "string", "maxLength": 256}
		}
	}`)

	sessionSchema = mustSchema(`{
		"type": "object",
		"required": ["sessionId"],
		"properties": {
			"sessionId": {"type": "string", "format": "uuid"}
		}
	}`)

	caseSchema = mustSchema(`{
		"type": "object",
		"required": ["caseId"],
		"properties": {
			"caseId": {"type": "string", "minLength": 1, "maxLength": 128}
		}
	}`)

	visaActiveSchema = mustSchema(`{
		"type": "object",
		"required": ["active"],
		"properties": {
			"active": {"type": "boolean"}
		}
	}`)

	createRuleSchema = mustSchema(`{
		"type": "object",
		"required": ["name", "expression"],
		"properties": {
			"name":       {"type": "string", "minLength": 1},
			"expression": {"type": "string", "minLength": 1},
			"active":     {"type": "boolean"}
		}
	}`)

	updateRuleSchema = mustSchema(`{
		"type": "object",
		"properties": {
			"name":       {"type": "string"},
			"expression": {"type": "string"},
			"active":     {"type": "boolean"}
		}
	}`)

	evaluateRuleSchema = mustSchema(`{
		"type": "object",
		"required": ["visaCode"],
		"properties": {
			"visaCode": {"type": "string", "minLength": 1},
			"profile":  ` + profileSchema + `,
			"answers":  {"type": "object", "additionalProperties": {"type": "string"}}
		}
	}`)
)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid request schema: %v", err))
	}
	return schema
}

// requestError is a client mistake in the request body.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

// decodeBody validates the body against schema and unmarshals it into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, schema *gojsonschema.Schema, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return &requestError{msg: fmt.Sprintf("failed to read body: %v", err)}
	}
	if len(body) == 0 {
		return &requestError{msg: "request body is required"}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &requestError{msg: fmt.Sprintf("malformed JSON: %v", err)}
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return &requestError{msg: strings.Join(errs, "; ")}
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return &requestError{msg: fmt.Sprintf("invalid request body: %v", err)}
	}
	return nil
}
