package models

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// TopicSource records where a post's topic came from
type TopicSource string

const (
	// TopicUserProvided indicates the user supplied the topic keyword directly
	TopicUserProvided TopicSource = "user_provided"
	// TopicTrendDiscovered indicates the topic came from trend collection
	TopicTrendDiscovered TopicSource = "trend_discovered"
)

// Post is the archive record of a published blog post
type Post struct {
	gorm.Model
	JobID       string      `json:"job_id" gorm:"index;not null"`
	Title       string      `json:"title" gorm:"not null"`
	URL         string      `json:"url"`
	Category    string      `json:"category" gorm:"index"`
	Topic       string      `json:"topic"`
	TopicSource TopicSource `json:"topic_source"`
	Tags        string      `json:"tags" gorm:"type:text"` // comma-separated
	HasImage    bool        `json:"has_image"`
}

// SetTags stores the ordered tag list on the record
func (p *Post) SetTags(tags []string) {
	p.Tags = strings.Join(tags, ",")
}

// TagList returns the ordered tag list stored on the record
func (p *Post) TagList() []string {
	if p.Tags == "" {
		return nil
	}
	return strings.Split(p.Tags, ",")
}

// Validate checks the record before persistence
func (p *Post) Validate() error {
	if p.JobID == "" {
		return fmt.Errorf("post requires a job id")
	}
	if p.Title == "" {
		return fmt.Errorf("post requires a title")
	}
	return nil
}
