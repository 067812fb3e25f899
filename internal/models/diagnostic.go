package models

import "fmt"

// Component names the pass that raised a diagnostic.
type Component string

// Diagnostic components.
const (
	ComponentTemplates Component = "templates"
	ComponentSections  Component = "sections"
	ComponentTables    Component = "tables"
	ComponentLines     Component = "lines"
	ComponentProcessor Component = "processor"
	ComponentValidator Component = "validator"
)

// Diagnostic is a non-fatal event raised while converting a page.
type Diagnostic struct {
	PageTitle string    `json:"pageTitle"`
	Component Component `json:"component"`
	Message   string    `json:"message"`
}

// String returns a one-line representation for logs.
func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s: %s", d.Component, d.PageTitle, d.Message)
}
