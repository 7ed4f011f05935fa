package envelope

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"task-ledger/internal/domain"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas
var schemaFiles embed.FS

const schemaBaseURL = "https://schemas.task-ledger.local/"

// schemaDirs maps the directory name used under schemas/task to its event.
var schemaDirs = map[string]domain.EventName{
	"created":   domain.EventTaskCreated,
	"assigned":  domain.EventTaskAssigned,
	"completed": domain.EventTaskCompleted,
}

// Registry holds compiled schemas keyed by (event name, version). It is built
// once and never mutated, so Validate carries no state between calls.
type Registry struct {
	schemas map[Key]*jsonschema.Schema
}

// LoadRegistry compiles every embedded schema file schemas/task/<event>/<version>.json.
func LoadRegistry() (*Registry, error) {
	return loadRegistry(schemaFiles)
}

func loadRegistry(fsys fs.FS) (*Registry, error) {
	reg := &Registry{schemas: make(map[Key]*jsonschema.Schema)}

	err := fs.WalkDir(fsys, "schemas", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".json" {
			return nil
		}

		key, err := keyFromPath(p)
		if err != nil {
			return err
		}
		body, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}

		url := schemaBaseURL + strings.TrimPrefix(p, "schemas/")
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(url, bytes.NewReader(body)); err != nil {
			return fmt.Errorf("add schema %s: %w", p, err)
		}
		schema, err := compiler.Compile(url)
		if err != nil {
			return fmt.Errorf("compile schema %s: %w", p, err)
		}
		reg.schemas[key] = schema
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func keyFromPath(p string) (Key, error) {
	// schemas/task/created/2.json
	parts := strings.Split(strings.TrimSuffix(p, ".json"), "/")
	if len(parts) != 4 {
		return Key{}, fmt.Errorf("unexpected schema path %s", p)
	}
	name, ok := schemaDirs[parts[2]]
	if !ok {
		return Key{}, fmt.Errorf("unknown event directory %s", parts[2])
	}
	version, err := strconv.Atoi(parts[3])
	if err != nil || version <= 0 {
		return Key{}, fmt.Errorf("bad schema version in %s", p)
	}
	return Key{Name: name, Version: version}, nil
}

func (r *Registry) Has(key Key) bool {
	_, ok := r.schemas[key]
	return ok
}

// Validate checks raw envelope JSON against the schema for key.
func (r *Registry) Validate(key Key, raw []byte) error {
	schema, ok := r.schemas[key]
	if !ok {
		return fmt.Errorf("%w: no schema registered for %s", domain.ErrSchemaViolation, key)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %s is not valid json: %v", domain.ErrSchemaViolation, key, err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrSchemaViolation, key, err)
	}
	return nil
}
