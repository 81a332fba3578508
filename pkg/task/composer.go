// Package task builds the opening message of the demo conversation: a
// fixed instructional template with the PL/SQL function, its table DDL,
// and the CSV fixtures interpolated verbatim.
package task

import (
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/colloquyhq/colloquy/pkg/errors"
)

// Reference file names expected inside the task directory.
const (
	PLSQLFile       = "plsql_function.sql"
	TablesFile      = "tables.sql"
	DepartmentsFile = "departments.csv"
	EmployeesFile   = "employees.csv"
	SalariesFile    = "salaries.csv"
)

const taskTemplate = `Please rewrite this Oracle PL/SQL function into a Python code function. Code should be written as a single program.
The function should return the results as a logical structure. Then print it similar to the PL/SQL output.

PL/SQL function:
` + "```" + `
{{.PLSQL}}
` + "```" + `

For context, here are the tables used in the PL/SQL function:
` + "```" + `
{{.Tables}}
` + "```" + `

This is for testing purposes, so you don't need to write code for connecting to an Oracle database. Instead use the data from the following CSV data when testing logic. The CSV data contains the following data:
departments.csv:
` + "```" + `
{{.Departments}}
` + "```" + `
employees.csv:
` + "```" + `
{{.Employees}}
` + "```" + `
salaries.csv:
` + "```" + `
{{.Salaries}}
` + "```" + `

When you are satisfied with the code, present the result to the user. For the test use the hardcoded CSV data provided above but keep it separate from the business logic. No need for logic reading CSV files.
Logic should be written so it can easily be changed to read from the production Oracle database.

The expected output for Department 1 should be:
` + "```" + `
Emp ID: 201, Name: John Doe, Salary: 50000, Bonus: 5000
Emp ID: 202, Name: Jane Smith, Salary: 55000, Bonus: 5500
Total Salary for Department 1: 115500
` + "```" + `
`

type templateData struct {
	PLSQL       string
	Tables      string
	Departments string
	Employees   string
	Salaries    string
}

// Composer assembles the opening task prompt from reference files.
type Composer struct {
	// Dir holds the reference documents.
	Dir string
}

// NewComposer creates a composer rooted at dir.
func NewComposer(dir string) *Composer {
	return &Composer{Dir: dir}
}

// Compose reads the reference documents and renders the opening prompt.
// Any unreadable file is a fatal I/O error propagated to the caller.
func (c *Composer) Compose() (string, error) {
	data := templateData{}
	for _, ref := range []struct {
		name string
		dst  *string
	}{
		{PLSQLFile, &data.PLSQL},
		{TablesFile, &data.Tables},
		{DepartmentsFile, &data.Departments},
		{EmployeesFile, &data.Employees},
		{SalariesFile, &data.Salaries},
	} {
		content, err := c.read(ref.name)
		if err != nil {
			return "", err
		}
		*ref.dst = content
	}

	tmpl, err := template.New("task").Parse(taskTemplate)
	if err != nil {
		return "", errors.New(errors.CodeInternal, "parse task template", err)
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", errors.New(errors.CodeInternal, "render task template", err)
	}
	return out.String(), nil
}

func (c *Composer) read(name string) (string, error) {
	path := filepath.Join(c.Dir, name)
	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.New(errors.CodeIO, "read reference document", err).
			WithContext("path", path)
	}
	return strings.TrimRight(string(content), "\n"), nil
}
