package meta

import "testing"

const detectionSchema = `{
  "type": "object",
  "required": ["objects"],
  "properties": {
    "objects": {"type": "array"}
  }
}`

func TestValidatorAccepts(t *testing.T) {
	v, err := NewValidatorFromJSON([]byte(detectionSchema))
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Validate(map[string]interface{}{"objects": []interface{}{}}); err != nil {
		t.Fatalf("expected valid body, got %v", err)
	}
}

func TestValidatorRejects(t *testing.T) {
	v, err := NewValidatorFromJSON([]byte(detectionSchema))
	if err != nil {
		t.Fatal(err)
	}
	err = v.Validate(map[string]interface{}{"wrong": true})
	if err == nil {
		t.Fatal("expected validation error")
	}
	var ve *ValidationError
	if !asValidationError(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
}

func asValidationError(err error, target **ValidationError) bool {
	ve, ok := err.(*ValidationError)
	if !ok {
		return false
	}
	*target = ve
	return true
}
