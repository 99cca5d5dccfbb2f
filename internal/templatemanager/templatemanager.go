package templatemanager

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"sync"
)

type TemplateManager struct {
	fsys      fs.FS
	mu        sync.RWMutex
	templates map[string]templateManagerRender
}

type templateManagerRender struct {
	Main string
	Tmpl *template.Template
}

type TemplateManagerTemplates struct {
	Name  string
	Files []string
}

var templateFuncMap = template.FuncMap{
	"contains": strings.Contains,
	"inc": func(i int) int {
		return i + 1
	},
	"iterate": func(count int) []int {
		items := make([]int, count)
		for i := range count {
			items[i] = i
		}
		return items
	},
	"join":    strings.Join,
	"replace": strings.ReplaceAll,
}

// NewTemplateManager parses templates out of fsys, usually the embedded views.
func NewTemplateManager(fsys fs.FS, templates ...TemplateManagerTemplates) (*TemplateManager, error) {
	tm := &TemplateManager{
		fsys:      fsys,
		templates: make(map[string]templateManagerRender),
	}

	for _, tmplStruct := range templates {
		if err := tm.Add(tmplStruct.Name, tmplStruct.Files...); err != nil {
			return nil, err
		}
	}

	return tm, nil
}

func (tm *TemplateManager) Render(name string, data any, files ...string) ([]byte, error) {
	tm.mu.RLock()
	tmpl, exists := tm.templates[name]
	tm.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("template %s is not found", name)
	}

	var err error
	var tempTmpl *template.Template
	if len(files) == 0 {
		tempTmpl = tmpl.Tmpl
	} else {
		tempTmpl, err = tmpl.Tmpl.Clone()
		if err != nil {
			return nil, fmt.Errorf("couldn't clone existing template for rendering: %w", err)
		}
		tempTmpl, err = tempTmpl.ParseFS(tm.fsys, files...)
		if err != nil {
			return nil, fmt.Errorf("couldn't include additional files in template rendering: %w", err)
		}
	}

	var buf bytes.Buffer
	err = tempTmpl.ExecuteTemplate(&buf, tmpl.Main, data)
	return buf.Bytes(), err
}

func (tm *TemplateManager) Add(name string, files ...string) error {
	if len(files) == 0 {
		return fmt.Errorf("you can't add template without any files")
	}

	tmpl, err := template.New(name).Funcs(templateFuncMap).ParseFS(tm.fsys, files...)
	if err != nil {
		return fmt.Errorf("failed to add template into manager: %w", err)
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.templates[name] = templateManagerRender{
		Main: path.Base(files[0]),
		Tmpl: tmpl,
	}
	return nil
}
