// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package mail

import (
	"bytes"
	_ "embed"
	"html/template"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultCatalog []byte

type catalogFile struct {
	Templates map[TemplateID]struct {
		Subject string `yaml:"subject"`
		Body    string `yaml:"body"`
	} `yaml:"templates"`
}

type entry struct {
	subject string
	body    *template.Template
}

// Rendered is a message ready for transport.
type Rendered struct {
	To      string
	Subject string
	HTML    string
}

// Renderer turns a Message into HTML using a template catalog.
type Renderer struct {
	entries map[TemplateID]entry
}

// NewRenderer parses the embedded catalog.
func NewRenderer() (*Renderer, error) {
	return ParseCatalog(defaultCatalog)
}

// ParseCatalog parses a YAML template catalog.
func ParseCatalog(data []byte) (*Renderer, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, oops.Code("MAIL_CATALOG_INVALID").Wrap(err)
	}
	if len(file.Templates) == 0 {
		return nil, oops.Code("MAIL_CATALOG_INVALID").Errorf("catalog has no templates")
	}

	entries := make(map[TemplateID]entry, len(file.Templates))
	for id, t := range file.Templates {
		tmpl, err := template.New(string(id)).Option("missingkey=error").Parse(t.Body)
		if err != nil {
			return nil, oops.Code("MAIL_CATALOG_INVALID").With("template", string(id)).Wrap(err)
		}
		entries[id] = entry{subject: t.Subject, body: tmpl}
	}
	return &Renderer{entries: entries}, nil
}

// Render executes the template named by msg.
func (r *Renderer) Render(msg Message) (Rendered, error) {
	if msg.To == "" {
		return Rendered{}, oops.Code("MAIL_INVALID_MESSAGE").With("template", string(msg.Template)).Errorf("recipient is required")
	}
	e, ok := r.entries[msg.Template]
	if !ok {
		return Rendered{}, oops.Code("MAIL_UNKNOWN_TEMPLATE").With("template", string(msg.Template)).Errorf("unknown template %q", msg.Template)
	}

	var buf bytes.Buffer
	if err := e.body.Execute(&buf, msg.Payload); err != nil {
		return Rendered{}, oops.Code("MAIL_RENDER_FAILED").With("template", string(msg.Template)).Wrap(err)
	}

	subject := msg.Subject
	if subject == "" {
		subject = e.subject
	}
	return Rendered{To: msg.To, Subject: subject, HTML: buf.String()}, nil
}
