package scenario

// schemaJSON is the embedded schema every scenario file must satisfy
// before field-level validation runs.
const schemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["agents", "packages"],
  "properties": {
    "name": {"type": "string"},
    "settings": {
      "type": "object",
      "properties": {
        "rows": {"type": "integer", "minimum": 1},
        "cols": {"type": "integer", "minimum": 1},
        "max_steps": {"type": "integer", "minimum": 1}
      },
      "additionalProperties": false
    },
    "walls": {
      "type": "array",
      "items": {
        "type": "array",
        "items": {"type": "integer", "minimum": 0},
        "minItems": 4,
        "maxItems": 4
      }
    },
    "agents": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["pos"],
        "properties": {
          "id": {"type": "integer", "minimum": 1},
          "name": {"type": "string"},
          "pos": {"$ref": "#/$defs/cell"}
        },
        "additionalProperties": false
      }
    },
    "packages": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["pickup", "dropoff"],
        "properties": {
          "name": {"type": "string"},
          "pickup": {"$ref": "#/$defs/cell"},
          "dropoff": {"$ref": "#/$defs/cell"}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "cell": {
      "type": "array",
      "items": {"type": "integer", "minimum": 0},
      "minItems": 2,
      "maxItems": 2
    }
  }
}`
