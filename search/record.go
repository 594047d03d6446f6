package search

import "fmt"

// Kind names a record variant.
type Kind string

const (
	KindPerson  Kind = "person"
	KindInvoice Kind = "invoice"
	KindLead    Kind = "lead"
)

// DefaultModule returns the module a kind navigates to when the record does
// not name one.
func (k Kind) DefaultModule() string {
	switch k {
	case KindPerson:
		return "hr"
	case KindInvoice:
		return "finance"
	case KindLead:
		return "crm"
	default:
		return ""
	}
}

// Record is one immutable corpus entry. The set of implementations is closed.
type Record interface {
	Kind() Kind
	RecordID() string
	record()
}

// Person is an HR person/role record. Its primary field is Name.
type Person struct {
	ID         string
	Name       string
	Department string
	Status     string
	Module     string
}

// Invoice is a monetary document. Its primary field is ID.
type Invoice struct {
	ID       string
	Title    string
	Customer string
	Amount   string
	Module   string
}

// Lead is a CRM opportunity. Its primary field is Contact.
type Lead struct {
	ID      string
	Contact string
	Company string
	Stage   string
	Module  string
}

func (Person) Kind() Kind  { return KindPerson }
func (Invoice) Kind() Kind { return KindInvoice }
func (Lead) Kind() Kind    { return KindLead }

func (p Person) RecordID() string  { return p.ID }
func (i Invoice) RecordID() string { return i.ID }
func (l Lead) RecordID() string    { return l.ID }

func (Person) record()  {}
func (Invoice) record() {}
func (Lead) record()    {}

// Primary returns the field relevance is scored against.
func Primary(r Record) string {
	switch v := r.(type) {
	case Person:
		return v.Name
	case Invoice:
		return v.ID
	case Lead:
		return v.Contact
	default:
		panic(fmt.Sprintf("search: unknown record type %T", r))
	}
}

// Fields returns every searchable field in a fixed order.
func Fields(r Record) []string {
	switch v := r.(type) {
	case Person:
		return []string{v.ID, v.Name, v.Department, v.Status}
	case Invoice:
		return []string{v.ID, v.Title, v.Customer, v.Amount}
	case Lead:
		return []string{v.ID, v.Contact, v.Company, v.Stage}
	default:
		panic(fmt.Sprintf("search: unknown record type %T", r))
	}
}

// Target returns the module a selected record navigates to.
func Target(r Record) string {
	var module string
	switch v := r.(type) {
	case Person:
		module = v.Module
	case Invoice:
		module = v.Module
	case Lead:
		module = v.Module
	default:
		panic(fmt.Sprintf("search: unknown record type %T", r))
	}
	if module == "" {
		module = r.Kind().DefaultModule()
	}
	return module
}

// Describe returns the title and subtitle rows shown for a result.
func Describe(r Record) (title, subtitle string) {
	switch v := r.(type) {
	case Person:
		return v.Name, joinNonEmpty(v.Department, v.Status)
	case Invoice:
		title := v.Title
		if title == "" {
			title = v.ID
		}
		return title, joinNonEmpty(v.Customer, v.Amount)
	case Lead:
		return v.Contact, joinNonEmpty(v.Company, v.Stage)
	default:
		panic(fmt.Sprintf("search: unknown record type %T", r))
	}
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += " • "
		}
		out += p
	}
	return out
}
