package subscription

import (
	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/magabrotheeeer/examprep/internal/services/quota"
)

// PlanPrice цена плана на срок.
type PlanPrice struct {
	Duration string `json:"duration"`
	MRP      int    `json:"mrp"`
	Price    int    `json:"price"`
	Savings  int    `json:"savings"`
}

// Features возможности уровня.
type Features struct {
	QuestionsPerDay int  `json:"questionsPerDay"`
	ChapterTests    int  `json:"chapterTests"`
	MockTests       int  `json:"mockTests"`
	Formulas        bool `json:"formulas"`
	Flashcards      bool `json:"flashcards"`
}

// Plan уровень подписки с ценами.
type Plan struct {
	Name     string      `json:"name"`
	Price    int         `json:"price,omitempty"`
	Plans    []PlanPrice `json:"plans,omitempty"`
	Features Features    `json:"features"`
}

var prices = map[models.Tier][]PlanPrice{
	models.TierSilver: {
		{Duration: "1M", MRP: 100, Price: 49, Savings: 51},
		{Duration: "6M", MRP: 500, Price: 249, Savings: 50},
		{Duration: "1Y", MRP: 1000, Price: 399, Savings: 60},
	},
	models.TierGold: {
		{Duration: "1M", MRP: 600, Price: 299, Savings: 50},
		{Duration: "6M", MRP: 2500, Price: 1299, Savings: 48},
		{Duration: "1Y", MRP: 5000, Price: 2000, Savings: 60},
	},
}

var names = map[models.Tier]string{
	models.TierFree:   "Free",
	models.TierSilver: "Silver",
	models.TierGold:   "Gold",
}

// Plans возвращает каталог уровней. Дневные лимиты берутся из quota.
func (s *Service) Plans() map[models.Tier]Plan {
	out := make(map[models.Tier]Plan, len(names))
	for tier, name := range names {
		l := quota.GetLimits(tier)
		out[tier] = Plan{
			Name:  name,
			Plans: prices[tier],
			Features: Features{
				QuestionsPerDay: l.Questions,
				ChapterTests:    l.ChapterTests,
				MockTests:       l.MockTests,
				Formulas:        tier == models.TierGold,
				Flashcards:      tier == models.TierGold,
			},
		}
	}
	return out
}
