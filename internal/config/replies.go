package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/finestate/hub-backend/internal/entity"
	"gopkg.in/yaml.v3"
)

var defaultReplies = entity.CannedReplies{
	Fallback: "I'm the CBRE Intelligence Hub assistant. Ask me about rents, vacancy, valuations or market trends, or attach a PDF report for me to read.",
	Replies: []entity.CannedReply{
		{
			Keywords: []string{"hello", "hi", "hey"},
			Reply:    "Hello! How can I help with your property portfolio today?",
		},
		{
			Keywords: []string{"rent", "lease"},
			Reply:    "Prime office rents in the portfolio rose 3.2% year over year, with average lease terms holding at about 6 years.",
		},
		{
			Keywords: []string{"vacancy", "occupancy"},
			Reply:    "Portfolio occupancy stands at 91.4%. Vacancy is concentrated in secondary office stock built before 2000.",
		},
		{
			Keywords: []string{"value", "valuation", "price"},
			Reply:    "The latest valuation cycle put the portfolio at an average yield of 5.1%, with logistics assets leading capital growth.",
		},
		{
			Keywords: []string{"market", "trend", "forecast"},
			Reply:    "Logistics and data-centre demand remain strong, while office demand keeps shifting towards energy-efficient Grade A space.",
		},
	},
}

// LoadReplies reads the canned reply table used by the mock chat backend.
// A missing file falls back to the built-in replies.
func LoadReplies(path string) (*entity.CannedReplies, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Printf("Warning: replies file not found at %s, using default replies\n", path)
		replies := defaultReplies
		return &replies, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read replies file: %w", err)
	}

	var replies entity.CannedReplies
	if err := yaml.Unmarshal(data, &replies); err != nil {
		return nil, fmt.Errorf("parse replies YAML: %w", err)
	}

	if len(replies.Replies) == 0 && replies.Fallback == "" {
		return nil, fmt.Errorf("replies file contains no replies: %s", path)
	}
	if replies.Fallback == "" {
		replies.Fallback = defaultReplies.Fallback
	}

	return &replies, nil
}
