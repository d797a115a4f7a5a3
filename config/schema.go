package config

import (
	"github.com/google/jsonschema-go/jsonschema"

	"go.jacobcolvin.com/marklog/color"
	"go.jacobcolvin.com/marklog/log"
)

// SchemaURI is the JSON Schema dialect of [Schema].
const SchemaURI = "https://json-schema.org/draft/2020-12/schema"

// Schema returns the JSON Schema that configuration documents must satisfy.
// Each call returns a new schema.
func Schema() *jsonschema.Schema {
	levels := append(log.GetAllLevelStrings(), "warning")

	style := object(map[string]*jsonschema.Schema{
		"color":      enum("Foreground color.", color.Colors()...),
		"highlight":  enum("Background color.", color.Colors()...),
		"attributes": array("Text attributes.", enum("", color.Attributes()...)),
	})

	mk := object(map[string]*jsonschema.Schema{
		"name":     nonEmpty("Marker name."),
		"children": array("Names of the marker's direct children.", nonEmpty("")),
	}, "name")
	mk.Description = "A marker and its direct children."

	smtp := object(map[string]*jsonschema.Schema{
		"host":     nonEmpty("SMTP server host."),
		"port":     {Type: "integer", Minimum: jsonschema.Ptr(1.0), Maximum: jsonschema.Ptr(65535.0)},
		"username": {Type: "string"},
		"password": {Type: "string"},
		"from":     nonEmpty("Sender address."),
		"to":       {Type: "array", Items: nonEmpty(""), MinItems: jsonschema.Ptr(1), Description: "Recipients."},
		"ssl":      {Type: "boolean", Description: "Dial with implicit TLS."},
	}, "host", "from", "to")

	output := object(map[string]*jsonschema.Schema{
		"type":     enum("Output kind.", OutputStream, OutputFile, OutputNotify),
		"target":   enum("Stream for stream outputs.", TargetStdout, TargetStderr),
		"path":     nonEmpty("File path for file outputs."),
		"level":    enum("Minimum level.", levels...),
		"format":   enum("Record format.", log.GetAllFormatStrings()...),
		"color":    enum("Color mode.", color.GetAllModeStrings()...),
		"template": {Type: "string", Description: "Template for the template format and alert bodies."},
		"subject":  {Type: "string", Description: "Alert subject for notify outputs."},
		"markers":  array("Only records with a matching marker are written.", nonEmpty("")),
		"smtp":     smtp,
	}, "type")

	root := object(map[string]*jsonschema.Schema{
		"level":     enum("Default minimum level.", levels...),
		"format":    enum("Default record format.", log.GetAllFormatStrings()...),
		"color":     enum("Default color mode.", color.GetAllModeStrings()...),
		"template":  {Type: "string", Description: "Default template."},
		"mdcFormat": {Type: "string", Description: "Layout of diagnostic context values, such as \"{requestID} {user}\"."},
		"colors": {
			Type:                 "object",
			Description:          "Styles keyed by level name.",
			AdditionalProperties: style,
		},
		"markers": array("Marker hierarchy.", mk),
		"outputs": array("Log destinations.", output),
	})
	root.Schema = SchemaURI
	root.Title = "marklog configuration"

	return root
}

func object(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
}

func array(desc string, items *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Description: desc, Items: items}
}

func enum(desc string, values ...string) *jsonschema.Schema {
	e := make([]any, len(values))
	for i, v := range values {
		e[i] = v
	}

	return &jsonschema.Schema{Type: "string", Description: desc, Enum: e}
}

func nonEmpty(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc, MinLength: jsonschema.Ptr(1)}
}
