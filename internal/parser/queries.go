//go:build cgo

package parser

import "github.com/dshills/codeindex/pkg/types"

// Definition queries capture the declared name as @name and the whole
// declaration as @definition.<kind>. Kinds are SymbolKind values.
var definitionQueries = map[types.Language]string{
	types.LangGo: `
(function_declaration name: (identifier) @name) @definition.function
(method_declaration name: (field_identifier) @name) @definition.method
(type_spec name: (type_identifier) @name type: (struct_type)) @definition.struct
(type_spec name: (type_identifier) @name type: (interface_type)) @definition.interface
(type_spec name: (type_identifier) @name) @definition.type
(const_spec name: (identifier) @name) @definition.constant
(source_file (var_declaration (var_spec name: (identifier) @name) @definition.variable))
(field_declaration name: (field_identifier) @name) @definition.field
`,
	types.LangRust: `
(function_item name: (identifier) @name) @definition.function
(function_signature_item name: (identifier) @name) @definition.method
(struct_item name: (type_identifier) @name) @definition.struct
(enum_item name: (type_identifier) @name) @definition.enum
(trait_item name: (type_identifier) @name) @definition.interface
(const_item name: (identifier) @name) @definition.constant
(static_item name: (identifier) @name) @definition.variable
(mod_item name: (identifier) @name) @definition.module
(type_item name: (type_identifier) @name) @definition.type
(macro_definition name: (identifier) @name) @definition.macro
(field_declaration name: (field_identifier) @name) @definition.field
`,
	types.LangJavaScript: `
(function_declaration name: (identifier) @name) @definition.function
(generator_function_declaration name: (identifier) @name) @definition.function
(class_declaration name: (identifier) @name) @definition.class
(method_definition name: (property_identifier) @name) @definition.method
(variable_declarator name: (identifier) @name value: (arrow_function)) @definition.function
(lexical_declaration "const" (variable_declarator name: (identifier) @name) @definition.constant)
(program (lexical_declaration (variable_declarator name: (identifier) @name) @definition.variable))
(program (variable_declaration (variable_declarator name: (identifier) @name) @definition.variable))
`,
	types.LangTypeScript: tsDefinitions,
	types.LangTSX:        tsDefinitions,
	types.LangPython: `
(function_definition name: (identifier) @name) @definition.function
(class_definition name: (identifier) @name) @definition.class
(module (expression_statement (assignment left: (identifier) @name) @definition.variable))
`,
	types.LangJava: `
(class_declaration name: (identifier) @name) @definition.class
(interface_declaration name: (identifier) @name) @definition.interface
(enum_declaration name: (identifier) @name) @definition.enum
(method_declaration name: (identifier) @name) @definition.method
(constructor_declaration name: (identifier) @name) @definition.method
(field_declaration declarator: (variable_declarator name: (identifier) @name)) @definition.field
`,
	types.LangC: cDefinitions,
	types.LangCPP: cDefinitions + `
(class_specifier name: (type_identifier) @name body: (field_declaration_list)) @definition.class
(namespace_definition name: (_) @name) @definition.namespace
(function_definition declarator: (function_declarator declarator: (field_identifier) @name)) @definition.method
(function_definition declarator: (function_declarator declarator: (qualified_identifier name: (identifier) @name))) @definition.method
`,
}

const tsDefinitions = `
(function_declaration name: (identifier) @name) @definition.function
(class_declaration name: (type_identifier) @name) @definition.class
(abstract_class_declaration name: (type_identifier) @name) @definition.class
(interface_declaration name: (type_identifier) @name) @definition.interface
(enum_declaration name: (identifier) @name) @definition.enum
(type_alias_declaration name: (type_identifier) @name) @definition.type
(method_definition name: (property_identifier) @name) @definition.method
(variable_declarator name: (identifier) @name value: (arrow_function)) @definition.function
(lexical_declaration "const" (variable_declarator name: (identifier) @name) @definition.constant)
(program (lexical_declaration (variable_declarator name: (identifier) @name) @definition.variable))
`

const cDefinitions = `
(function_definition declarator: (function_declarator declarator: (identifier) @name)) @definition.function
(function_definition declarator: (pointer_declarator declarator: (function_declarator declarator: (identifier) @name))) @definition.function
(struct_specifier name: (type_identifier) @name body: (field_declaration_list)) @definition.struct
(enum_specifier name: (type_identifier) @name) @definition.enum
(type_definition declarator: (type_identifier) @name) @definition.type
(preproc_def name: (identifier) @name) @definition.macro
(preproc_function_def name: (identifier) @name) @definition.macro
`

// Usage queries capture every identifier-like leaf as @usage
var usageQueries = map[types.Language]string{
	types.LangGo:         `(identifier) @usage (type_identifier) @usage (field_identifier) @usage`,
	types.LangRust:       `(identifier) @usage (type_identifier) @usage (field_identifier) @usage`,
	types.LangJavaScript: `(identifier) @usage (property_identifier) @usage`,
	types.LangTypeScript: `(identifier) @usage (property_identifier) @usage (type_identifier) @usage`,
	types.LangTSX:        `(identifier) @usage (property_identifier) @usage (type_identifier) @usage`,
	types.LangPython:     `(identifier) @usage`,
	types.LangJava:       `(identifier) @usage (type_identifier) @usage`,
	types.LangC:          `(identifier) @usage (type_identifier) @usage (field_identifier) @usage`,
	types.LangCPP:        `(identifier) @usage (type_identifier) @usage (field_identifier) @usage`,
}

// Node types that open a named scope, with the field holding the name
var scopeNameField = map[string]string{
	"class_declaration":          "name",
	"abstract_class_declaration": "name",
	"class_definition":           "name",
	"class_specifier":            "name",
	"struct_specifier":           "name",
	"interface_declaration":      "name",
	"enum_declaration":           "name",
	"namespace_definition":       "name",
	"impl_item":                  "type",
	"trait_item":                 "name",
	"mod_item":                   "name",
	"type_spec":                  "name",
	"struct_item":                "name",
}

// Node types whose function-kind members are methods
var methodContainers = map[string]bool{
	"class_declaration":          true,
	"abstract_class_declaration": true,
	"class_definition":           true,
	"class_specifier":            true,
	"class_body":                 true,
	"impl_item":                  true,
	"trait_item":                 true,
}

var callNodes = map[string]bool{
	"call_expression":   true,
	"call":              true,
	"method_invocation": true,
	"macro_invocation":  true,
	"new_expression":    true,
}

var memberNodes = map[string]bool{
	"selector_expression":  true,
	"member_expression":    true,
	"field_expression":     true,
	"attribute":            true,
	"scoped_identifier":    true,
	"qualified_identifier": true,
}

var assignmentNodes = map[string]bool{
	"assignment_statement":            true,
	"assignment_expression":           true,
	"assignment":                      true,
	"augmented_assignment":            true,
	"augmented_assignment_expression": true,
	"compound_assignment_expr":        true,
	"update_expression":               true,
	"inc_statement":                   true,
	"dec_statement":                   true,
}
