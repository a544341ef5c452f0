// Package vcard models the contact records nfcard stores on tags as
// vCard 3.0 payloads.
package vcard

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"nfcard/internal/ndef"
)

var ErrNoVCardRecord = errors.New("vcard: tag does not contain a vcard record")

// Contact is the subset of vCard fields the tool round-trips.
type Contact struct {
	Name    string
	Phone   string
	Email   string
	Company string
}

// New builds a contact with all fields trimmed.
func New(name, phone, email, company string) Contact {
	return Contact{
		Name:    strings.TrimSpace(name),
		Phone:   strings.TrimSpace(phone),
		Email:   strings.TrimSpace(email),
		Company: strings.TrimSpace(company),
	}
}

// Validate checks the contact before it is written to a tag. Phone numbers
// are either ten digits or a + followed by ten to twelve digits.
func (c Contact) Validate() error {
	if len(c.Name) < 3 {
		return errors.New("vcard: name must be at least 3 characters")
	}
	if !validPhone(c.Phone) {
		return fmt.Errorf("vcard: invalid phone number %q", c.Phone)
	}
	if !strings.Contains(c.Email, "@") {
		return fmt.Errorf("vcard: invalid email %q", c.Email)
	}
	if c.Company == "" {
		return errors.New("vcard: company is required")
	}
	return nil
}

func validPhone(phone string) bool {
	digits := phone
	international := strings.HasPrefix(phone, "+")
	if international {
		digits = phone[1:]
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	if international {
		return len(digits) >= 10 && len(digits) <= 12
	}
	return len(digits) == 10
}

// Encode renders the contact as a vCard 3.0 document.
func (c Contact) Encode() string {
	var sb strings.Builder
	sb.WriteString("BEGIN:VCARD\n")
	sb.WriteString("VERSION:3.0\n")
	fmt.Fprintf(&sb, "FN:%s\n", c.Name)
	fmt.Fprintf(&sb, "ORG:%s\n", c.Company)
	fmt.Fprintf(&sb, "TEL:%s\n", c.Phone)
	fmt.Fprintf(&sb, "EMAIL:%s\n", c.Email)
	sb.WriteString("END:VCARD\n")
	return sb.String()
}

// Decode extracts the known fields from a vCard document. Unknown lines are
// ignored; absent fields keep placeholder values.
func Decode(doc string) Contact {
	contact := Contact{
		Name:    "Unknown",
		Phone:   "0000000000",
		Email:   "Unknown",
		Company: "Unknown",
	}
	for _, line := range strings.Split(doc, "\n") {
		key, value, ok := strings.Cut(strings.TrimRight(line, "\r"), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "FN":
			contact.Name = value
		case "ORG":
			contact.Company = value
		case "TEL":
			contact.Phone = value
		case "EMAIL":
			contact.Email = value
		}
	}
	return contact
}

// ToRecord wraps the contact in an NDEF media record.
func (c Contact) ToRecord() ndef.Record {
	return ndef.MediaRecord(ndef.MediaTypeXVCard, []byte(c.Encode()))
}

// FromRecords finds the first vCard record in an NDEF message and decodes
// it. Non-vCard records are skipped.
func FromRecords(records []ndef.Record) (Contact, error) {
	for _, r := range records {
		if !r.IsVCard() {
			continue
		}
		return Decode(string(r.Payload)), nil
	}
	return Contact{}, ErrNoVCardRecord
}

// String renders the contact for terminal display.
func (c Contact) String() string {
	return fmt.Sprintf("\nName: %s\nPhone: %s\nEmail: %s\nCompany: %s\n",
		c.Name, c.Phone, c.Email, c.Company)
}

// Prompt interactively collects and validates a contact.
func Prompt(in io.Reader, out io.Writer) (Contact, error) {
	scanner := bufio.NewScanner(in)
	ask := func(label string) (string, error) {
		fmt.Fprintf(out, "Enter %s: ", label)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		return scanner.Text(), nil
	}

	name, err := ask("full name")
	if err != nil {
		return Contact{}, err
	}
	phone, err := ask("phone")
	if err != nil {
		return Contact{}, err
	}
	email, err := ask("email")
	if err != nil {
		return Contact{}, err
	}
	company, err := ask("company")
	if err != nil {
		return Contact{}, err
	}

	contact := New(name, phone, email, company)
	if err := contact.Validate(); err != nil {
		return Contact{}, err
	}
	return contact, nil
}
