package schema

import _ "embed"

//go:embed arch-bootstrap-config.schema.json
var ConfigSchema []byte

//go:embed bootstrap-profile.schema.json
var ProfileSchema []byte
