package middleware

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	contextutils "academyapp/internal/utils"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v2"
)

// operationSchemas holds the schema names bound to one path+method pair.
type operationSchemas struct {
	Request  string
	Response string
}

// SchemaLoader compiles the JSON schemas from the OpenAPI specification and
// indexes which schema each documented operation uses. The spec file is
// parsed once at load time.
type SchemaLoader struct {
	schemas map[string]*gojsonschema.Schema
	// operations: swagger path pattern -> lower-case method -> schemas.
	operations map[string]map[string]operationSchemas
}

// NewSchemaLoader creates an empty schema loader.
func NewSchemaLoader() *SchemaLoader {
	return &SchemaLoader{
		schemas:    make(map[string]*gojsonschema.Schema),
		operations: make(map[string]map[string]operationSchemas),
	}
}

// LoadSchemasFromSwagger loads and compiles all schemas from the OpenAPI spec.
func (sl *SchemaLoader) LoadSchemasFromSwagger(swaggerPath string) error {
	data, err := os.ReadFile(swaggerPath)
	if err != nil {
		return contextutils.WrapError(err, "failed to read swagger file")
	}

	var swaggerRaw map[interface{}]interface{}
	if err := yaml.Unmarshal(data, &swaggerRaw); err != nil {
		return contextutils.WrapError(err, "failed to parse swagger file as YAML")
	}

	swaggerConverted, err := convertToJSONCompatible(swaggerRaw)
	if err != nil {
		return contextutils.WrapError(err, "failed to normalize swagger document")
	}
	swagger, ok := swaggerConverted.(map[string]interface{})
	if !ok {
		return contextutils.ErrorWithContextf("swagger document is not a mapping")
	}

	schemas, ok := dig(swagger, "components", "schemas")
	if !ok {
		return contextutils.ErrorWithContextf("no components.schemas section found in swagger")
	}

	if err := sl.compileSchemas(schemas); err != nil {
		return err
	}
	sl.indexOperations(swagger)
	return nil
}

// compileSchemas compiles each named schema with the full components context
// so $ref links between schemas resolve.
func (sl *SchemaLoader) compileSchemas(schemas map[string]interface{}) error {
	for name := range schemas {
		doc := map[string]interface{}{
			"$schema": "http://json-schema.org/draft-07/schema#",
			"components": map[string]interface{}{
				"schemas": schemas,
			},
			"$ref": "#/components/schemas/" + name,
		}
		docBytes, err := json.Marshal(doc)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to marshal schema %s", name)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(docBytes))
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to compile schema %s", name)
		}
		sl.schemas[name] = schema
	}
	return nil
}

// indexOperations records, per documented path+method, the request body and
// 200-response schema names.
func (sl *SchemaLoader) indexOperations(swagger map[string]interface{}) {
	paths, ok := dig(swagger, "paths")
	if !ok {
		return
	}
	for path, rawOps := range paths {
		ops, ok := rawOps.(map[string]interface{})
		if !ok {
			continue
		}
		for method, rawOp := range ops {
			op, ok := rawOp.(map[string]interface{})
			if !ok {
				continue
			}
			entry := operationSchemas{
				Request:  schemaRefName(op, "requestBody", "content", "application/json", "schema"),
				Response: schemaRefName(op, "responses", "200", "content", "application/json", "schema"),
			}
			if sl.operations[path] == nil {
				sl.operations[path] = make(map[string]operationSchemas)
			}
			sl.operations[path][strings.ToLower(method)] = entry
		}
	}
}

// dig walks nested string-keyed maps.
func dig(m map[string]interface{}, keys ...string) (map[string]interface{}, bool) {
	current := m
	for _, key := range keys {
		next, ok := current[key].(map[string]interface{})
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// schemaRefName resolves a nested $ref like "#/components/schemas/Name" to
// "Name", or "" when the operation has no schema at that position.
func schemaRefName(op map[string]interface{}, keys ...string) string {
	node, ok := dig(op, keys...)
	if !ok {
		return ""
	}
	ref, ok := node["$ref"].(string)
	if !ok {
		return ""
	}
	const prefix = "#/components/schemas/"
	if !strings.HasPrefix(ref, prefix) {
		return ""
	}
	return strings.TrimPrefix(ref, prefix)
}

// convertToJSONCompatible rewrites YAML's interface-keyed maps into
// string-keyed ones and expands OpenAPI "nullable" into JSON-schema unions.
func convertToJSONCompatible(data interface{}) (interface{}, error) {
	switch v := data.(type) {
	case map[interface{}]interface{}:
		result := make(map[string]interface{})
		hasNullable := false

		for k, val := range v {
			keyStr, ok := k.(string)
			if !ok {
				return nil, contextutils.ErrorWithContextf("key is not a string: %v", k)
			}
			if keyStr == "nullable" {
				if nullable, ok := val.(bool); ok && nullable {
					hasNullable = true
					continue
				}
			}
			converted, err := convertToJSONCompatible(val)
			if err != nil {
				return nil, err
			}
			result[keyStr] = converted
		}

		if hasNullable {
			if ref, hasRef := result["$ref"].(string); hasRef {
				result["oneOf"] = []interface{}{
					map[string]interface{}{"$ref": ref},
					map[string]interface{}{"enum": []interface{}{nil}},
				}
				delete(result, "$ref")
			} else if typeVal, hasType := result["type"].(string); hasType {
				result["type"] = []interface{}{typeVal, "null"}
			}
		}
		return result, nil
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, val := range v {
			converted, err := convertToJSONCompatible(val)
			if err != nil {
				return nil, err
			}
			result[i] = converted
		}
		return result, nil
	default:
		return data, nil
	}
}

// ValidateData validates data against a named schema.
func (sl *SchemaLoader) ValidateData(data interface{}, schemaName string) error {
	schema, exists := sl.schemas[schemaName]
	if !exists {
		return contextutils.ErrorWithContextf("schema %s not found", schemaName)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return contextutils.WrapError(err, "failed to marshal data")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return contextutils.WrapError(err, "validation error")
	}
	if !result.Valid() {
		var validationErrors []string
		for _, validationErr := range result.Errors() {
			validationErrors = append(validationErrors, fmt.Sprintf("%s: %s", validationErr.Field(), validationErr.Description()))
		}
		return contextutils.ErrorWithContextf("schema validation failed: %s", strings.Join(validationErrors, "; "))
	}
	return nil
}

// lookupOperation matches a concrete request path against the documented
// path patterns.
func (sl *SchemaLoader) lookupOperation(path, method string) (operationSchemas, bool) {
	method = strings.ToLower(method)
	if ops, ok := sl.operations[path]; ok {
		if entry, ok := ops[method]; ok {
			return entry, true
		}
	}
	for pattern, ops := range sl.operations {
		if pathMatchesPattern(path, pattern) {
			if entry, ok := ops[method]; ok {
				return entry, true
			}
		}
	}
	return operationSchemas{}, false
}

// IsEndpointDocumented checks if an endpoint appears in the spec.
func (sl *SchemaLoader) IsEndpointDocumented(path, method string) bool {
	_, ok := sl.lookupOperation(path, method)
	return ok
}

// DetermineSchemaFromPath returns the 200-response schema name for the
// endpoint, or "".
func (sl *SchemaLoader) DetermineSchemaFromPath(path, method string) string {
	entry, _ := sl.lookupOperation(path, method)
	return entry.Response
}

// DetermineRequestSchemaFromPath returns the request body schema name for
// the endpoint, or "".
func (sl *SchemaLoader) DetermineRequestSchemaFromPath(path, method string) string {
	entry, _ := sl.lookupOperation(path, method)
	return entry.Request
}

// pathMatchesPattern checks a concrete path against a swagger pattern where
// {param} segments match anything.
func pathMatchesPattern(requestPath, swaggerPath string) bool {
	requestSegments := strings.Split(requestPath, "/")
	swaggerSegments := strings.Split(swaggerPath, "/")
	if len(requestSegments) != len(swaggerSegments) {
		return false
	}
	for i, swaggerSegment := range swaggerSegments {
		if strings.HasPrefix(swaggerSegment, "{") && strings.HasSuffix(swaggerSegment, "}") {
			continue
		}
		if swaggerSegment != requestSegments[i] {
			return false
		}
	}
	return true
}

// AutoLoadSchemas loads schemas from the file named by SWAGGER_FILE_PATH.
// A missing or unset path yields an empty loader; validation is then a
// pass-through.
func AutoLoadSchemas() *SchemaLoader {
	loader := NewSchemaLoader()

	swaggerPath := os.Getenv("SWAGGER_FILE_PATH")
	if swaggerPath == "" {
		return loader
	}
	if _, err := os.Stat(swaggerPath); err != nil {
		return loader
	}
	if err := loader.LoadSchemasFromSwagger(swaggerPath); err != nil {
		fmt.Printf("Warning: failed to load schemas from %s: %v\n", swaggerPath, err)
	}
	return loader
}
