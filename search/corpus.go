package search

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCorpus returns the built-in records of the dashboard.
func DefaultCorpus() []Record {
	return []Record{
		Person{ID: "EMP-2847", Name: "Sarah Anderson", Department: "Engineering", Status: "Active"},
		Person{ID: "EMP-2891", Name: "Marcus Chen", Department: "Product", Status: "Active"},
		Invoice{ID: "INV-2024", Title: "Invoice #2024", Customer: "Acme Corp", Amount: "$12,450"},
		Lead{ID: "LEAD-001", Contact: "Jennifer Martinez", Company: "TechCorp", Stage: "Hot Lead"},
	}
}

type corpusFile struct {
	Records []recordYAML `yaml:"records"`
}

type recordYAML struct {
	Kind   Kind   `yaml:"kind"`
	ID     string `yaml:"id"`
	Module string `yaml:"module,omitempty"`

	Name       string `yaml:"name,omitempty"`
	Department string `yaml:"department,omitempty"`
	Status     string `yaml:"status,omitempty"`

	Title    string `yaml:"title,omitempty"`
	Customer string `yaml:"customer,omitempty"`
	Amount   string `yaml:"amount,omitempty"`

	Contact string `yaml:"contact,omitempty"`
	Company string `yaml:"company,omitempty"`
	Stage   string `yaml:"stage,omitempty"`
}

func (r recordYAML) toRecord() (Record, error) {
	switch Kind(strings.ToLower(string(r.Kind))) {
	case KindPerson:
		return Person{ID: r.ID, Name: r.Name, Department: r.Department, Status: r.Status, Module: r.Module}, nil
	case KindInvoice:
		return Invoice{ID: r.ID, Title: r.Title, Customer: r.Customer, Amount: r.Amount, Module: r.Module}, nil
	case KindLead:
		return Lead{ID: r.ID, Contact: r.Contact, Company: r.Company, Stage: r.Stage, Module: r.Module}, nil
	default:
		return nil, fmt.Errorf("search: record %q has unknown kind %q", r.ID, r.Kind)
	}
}

// DecodeCorpus reads a YAML document with a top-level "records" list.
func DecodeCorpus(r io.Reader) ([]Record, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f corpusFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("search: decode corpus: %w", err)
	}

	out := make([]Record, 0, len(f.Records))
	for _, raw := range f.Records {
		rec, err := raw.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// LoadCorpus reads a corpus file from path.
func LoadCorpus(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeCorpus(f)
}
