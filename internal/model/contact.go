package model

import (
	"math"
	"strings"
	"time"
)

type ContactStatus string

const (
	StatusNew      ContactStatus = "new"
	StatusRead     ContactStatus = "read"
	StatusReplied  ContactStatus = "replied"
	StatusArchived ContactStatus = "archived"
)

// ContactStatuses lists every status in lifecycle order.
var ContactStatuses = []ContactStatus{StatusNew, StatusRead, StatusReplied, StatusArchived}

func (s ContactStatus) String() string { return string(s) }

func (s ContactStatus) Valid() bool {
	return s == StatusNew || s == StatusRead || s == StatusReplied || s == StatusArchived
}

// ParseContactStatus normalizes input. Returns (value, true) if valid.
func ParseContactStatus(s string) (ContactStatus, bool) {
	st := ContactStatus(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) String() string { return string(p) }

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh || p == PriorityUrgent
}

// ParsePriority normalizes input. Returns (value, true) if valid.
func ParsePriority(s string) (Priority, bool) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Valid()
}

type Source string

const (
	SourceWebsite Source = "website"
	SourceMobile  Source = "mobile"
	SourceAPI     Source = "api"
)

func (s Source) String() string { return string(s) }

func (s Source) Valid() bool {
	return s == SourceWebsite || s == SourceMobile || s == SourceAPI
}

// Contact is the DB entity persisted in the contacts table.
type Contact struct {
	ID           string        `db:"id"            json:"id"`
	Name         string        `db:"name"          json:"name"`
	Email        string        `db:"email"         json:"email"`
	Phone        *string       `db:"phone"         json:"phone"`
	Subject      string        `db:"subject"       json:"subject"`
	Message      string        `db:"message"       json:"message"`
	Status       ContactStatus `db:"status"        json:"status"`
	Priority     Priority      `db:"priority"      json:"priority"`
	Source       Source        `db:"source"        json:"source"`
	IPAddress    *string       `db:"ip_address"    json:"ipAddress"`
	UserAgent    *string       `db:"user_agent"    json:"userAgent"`
	EmailSent    bool          `db:"email_sent"    json:"emailSent"`
	EmailSentAt  *time.Time    `db:"email_sent_at" json:"emailSentAt"`
	ResponseTime *time.Time    `db:"response_time" json:"responseTime"`
	Notes        *string       `db:"notes"         json:"notes"`
	CreatedAt    time.Time     `db:"created_at"    json:"createdAt"`
	UpdatedAt    time.Time     `db:"updated_at"    json:"updatedAt"`
}

// ResponseTimeHours is the time to first reply in hours, rounded to two decimals.
// Nil until the contact has been replied to.
func (c Contact) ResponseTimeHours() *float64 {
	if c.ResponseTime == nil {
		return nil
	}
	h := c.ResponseTime.Sub(c.CreatedAt).Hours()
	h = math.Round(h*100) / 100
	return &h
}

// Pagination describes one page of a listing.
type Pagination struct {
	Current int `json:"current"`
	Pages   int `json:"pages"`
	Total   int `json:"total"`
	Limit   int `json:"limit"`
}

type ContactPage struct {
	Contacts   []Contact  `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// ContactStats is an aggregate snapshot of the contacts collection.
type ContactStats struct {
	Total    int                   `json:"total"`
	Today    int                   `json:"today"`
	ByStatus map[ContactStatus]int `json:"byStatus"`
}

// DailyVolume is one row of the ClickHouse submissions report.
type DailyVolume struct {
	Day      time.Time `db:"day"      json:"day"`
	Priority Priority  `db:"priority" json:"priority"`
	Count    uint64    `db:"cnt"      json:"count"`
}
