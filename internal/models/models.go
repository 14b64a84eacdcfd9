package models

import "time"

// PlanRecord is a generated plan as it is persisted
type PlanRecord struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Drops     int        `json:"drops"`
	Sessions  []string   `json:"sessions"`
	Input     string     `json:"input"`
	Rows      [][]string `json:"rows"`
	Output    string     `json:"output"`
}

// GeneratePlanRequest represents the request to generate a plan
type GeneratePlanRequest struct {
	Input string `json:"input"`
	Drops int    `json:"drops,omitempty"` // 0 = server default
}

// ParsePlanRequest represents the request to preview a parsed plan
type ParsePlanRequest struct {
	Input string `json:"input"`
}

// SessionSummary describes one parsed session
type SessionSummary struct {
	Name         string   `json:"name"`
	Step         int      `json:"step"`
	Limit        int      `json:"limit"`
	HistoryCount int      `json:"history_count"`
	LastIssued   string   `json:"last_issued,omitempty"`
	Paused       []string `json:"paused"`
	NextStart    int      `json:"next_start"`
}

// ParsePlanResponse represents the response of a parse preview
type ParsePlanResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

// ListPlansResponse represents a page of stored plans, newest first
type ListPlansResponse struct {
	Plans []*PlanRecord `json:"plans"`
	Count int           `json:"count"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
