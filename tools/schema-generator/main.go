// Command schema-generator writes telemetry.schema.json: the configuration
// schema with the logging extension composed in, for editor validation.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/grovetools/telemetry/config"
	"github.com/grovetools/telemetry/logging"
	"github.com/invopop/jsonschema"
)

func main() {
	out := flag.String("o", "schema/telemetry.schema.json", "output file")
	flag.Parse()

	baseBytes, err := config.GenerateSchema()
	if err != nil {
		log.Fatalf("Error generating schema: %v", err)
	}
	var base map[string]interface{}
	if err := json.Unmarshal(baseBytes, &base); err != nil {
		log.Fatalf("Error decoding base schema: %v", err)
	}

	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}
	logSchema := r.Reflect(&logging.Config{})
	logSchema.Version = ""
	logSchema.Description = "The 'logging' section of telemetry.yml."
	logSchema.Required = nil

	logBytes, err := json.Marshal(logSchema)
	if err != nil {
		log.Fatalf("Error marshaling logging schema: %v", err)
	}
	var logProps map[string]interface{}
	if err := json.Unmarshal(logBytes, &logProps); err != nil {
		log.Fatalf("Error decoding logging schema: %v", err)
	}

	props, ok := base["properties"].(map[string]interface{})
	if !ok {
		log.Fatalf("Base schema has no properties")
	}
	props["logging"] = logProps

	data, err := json.MarshalIndent(base, "", "  ")
	if err != nil {
		log.Fatalf("Error marshaling schema: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatalf("Error creating schema directory: %v", err)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}
	log.Printf("Successfully generated schema at %s", *out)
}
