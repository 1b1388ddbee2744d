package services

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Request schema names, one per JSON body the API accepts.
const (
	SchemaRegister     = "register"
	SchemaLogin        = "login"
	SchemaPlay         = "play"
	SchemaWithdraw     = "withdraw"
	SchemaDeposit      = "deposit"
	SchemaStatus       = "status"
	SchemaInject       = "inject"
	SchemaPack         = "pack"
	SchemaProduct      = "product"
	SchemaOnHoldPay    = "on_hold_pay"
	SchemaWalletAdjust = "wallet_adjust"
	SchemaSettings     = "settings"

	SchemaChangePassword = "change_password"
	SchemaEvent          = "event"
	SchemaPaymentMethod  = "payment_method"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// ErrValidation can be used with errors.Is to detect rejected input.
var ErrValidation = errors.New("validation failed")

type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles every embedded request schema. Formats such as email
// and uuid are asserted.
func NewValidator() (*Validator, error) {
	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}
	c := jsonschema.NewCompiler()
	c.AssertFormat = true

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", e.Name(), err)
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		if err := c.AddResource(schemaURL(name), bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema %q: %w", name, err)
		}
		names = append(names, name)
	}

	schemas := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		s, err := c.Compile(schemaURL(name))
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", name, err)
		}
		schemas[name] = s
	}
	return &Validator{schemas: schemas}, nil
}

func schemaURL(name string) string {
	return "https://ratepulse.dev/schemas/" + name + ".json"
}

// Validate is a hard reject: malformed JSON or a schema mismatch returns an
// error wrapping ErrValidation.
func (v *Validator) Validate(name string, body []byte) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrValidation, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
