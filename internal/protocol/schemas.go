package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const intentSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type", "action_kind", "coords"],
  "properties": {
    "type": {"const": "intent"},
    "request_id": {"type": "string", "maxLength": 64},
    "action_kind": {"enum": ["plant", "harvest", "clear_rubble", "speed_grow", "lease", "pay_rent"]},
    "map_id": {"type": "string"},
    "coords": {
      "type": "array",
      "minItems": 1,
      "maxItems": 256,
      "items": {
        "type": "object",
        "required": ["x", "y"],
        "properties": {
          "x": {"type": "integer"},
          "y": {"type": "integer"}
        }
      }
    },
    "crop_type": {"type": "string", "maxLength": 32},
    "crop_level": {"type": "integer", "minimum": 0}
  }
}`

const subscribeSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type", "map_id", "owner_id"],
  "properties": {
    "type": {"const": "subscribe"},
    "map_id": {"type": "string", "minLength": 1},
    "owner_id": {"type": "string", "minLength": 1}
  }
}`

var (
	intentSchema    = jsonschema.MustCompileString("intent.schema.json", intentSchemaJSON)
	subscribeSchema = jsonschema.MustCompileString("subscribe.schema.json", subscribeSchemaJSON)
)

func ValidateIntent(raw []byte) error {
	return validate(intentSchema, raw)
}

func ValidateSubscribe(raw []byte) error {
	return validate(subscribeSchema, raw)
}

func validate(s *jsonschema.Schema, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return s.Validate(v)
}
