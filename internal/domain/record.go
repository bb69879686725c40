package domain

import (
	"slices"
	"time"
)

// Record is the single serialized root object holding all durable data.
// Every write replaces and re-serializes it wholesale; there is no
// field-level update at the persistence layer.
type Record struct {
	Books        []Book `json:"books"`
	Users        []User `json:"users"`
	Version      int64  `json:"version"`
	LastModified string `json:"lastModified"`
}

// NewRecord builds an initial record around the given seed data and stamps it.
func NewRecord(books []Book, users []User) Record {
	r := Record{
		Books: slices.Clone(books),
		Users: slices.Clone(users),
	}
	r.Stamp()
	return r
}

// Stamp bumps the record's version to the current epoch millis and refreshes
// lastModified. Version is kept strictly monotonic even when two writes land
// within the same millisecond.
func (r *Record) Stamp() {
	v := time.Now().UnixMilli()
	if v <= r.Version {
		v = r.Version + 1
	}
	r.Version = v
	r.LastModified = time.Now().Format(time.RFC3339)
}

// Clone returns a deep copy of the record. Books and users carry no
// reference fields, so cloning the slices is sufficient.
func (r Record) Clone() Record {
	r.Books = slices.Clone(r.Books)
	r.Users = slices.Clone(r.Users)
	return r
}

// FindBook returns the index of the book with the given id, or -1.
func (r *Record) FindBook(id int64) int {
	return slices.IndexFunc(r.Books, func(b Book) bool { return b.ID == id })
}

// FindUser returns the index of the user with the given id, or -1.
func (r *Record) FindUser(id int64) int {
	return slices.IndexFunc(r.Users, func(u User) bool { return u.ID == id })
}
