package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/marketsim/pkg/domain/entities"
)

// Suitability is a scored judgement of how well a supplier fits a stand
type Suitability struct {
	Suitable bool            `json:"suitable"`
	Score    decimal.Decimal `json:"score"`
	Reason   string          `json:"reason"`
}

var qualityAlignment = map[entities.OrderingTier]map[entities.QualityTier]float64{
	entities.OrderingPremium: {
		entities.QualityPremium:  1.0,
		entities.QualityStandard: 0.6,
		entities.QualityBudget:   0.3,
	},
	entities.OrderingMidrange: {
		entities.QualityPremium:  0.8,
		entities.QualityStandard: 1.0,
		entities.QualityBudget:   0.7,
	},
	entities.OrderingBudget: {
		entities.QualityPremium:  0.4,
		entities.QualityStandard: 0.7,
		entities.QualityBudget:   1.0,
	},
}

var suitableScore = decimal.NewFromFloat(0.6)

// EvaluateSupplierSuitability weighs quality alignment (40%), price (30%),
// reliability (20%) and bundled services (10%)
func EvaluateSupplierSuitability(stand *entities.Stand, supplier *entities.Supplier) Suitability {
	if supplier == nil || supplier.Factors == nil {
		return Suitability{Suitable: true, Score: decimal.NewFromFloat(0.5), Reason: "no pricing factors available"}
	}
	f := supplier.Factors

	alignment := 0.5
	if byQuality, ok := qualityAlignment[stand.OrderingTier]; ok {
		if a, ok := byQuality[supplier.Quality]; ok {
			alignment = a
		}
	}

	base, _ := f.BasePrice.Float64()
	priceScore := 1 - (base-0.25)/0.25
	if priceScore < 0 {
		priceScore = 0
	}

	reliability, _ := f.Reliability.Float64()
	if reliability == 0 {
		reliability = 0.9
	}

	services := 0.5
	if f.Services.Washing {
		services += 0.1
	}
	if f.Services.Sorting {
		services += 0.1
	}
	if f.Services.PremiumPackaging {
		services += 0.2
	}
	if f.Services.ColdStorage {
		services += 0.1
	}
	if services > 1 {
		services = 1
	}

	score := decimal.NewFromFloat(alignment*0.4 + priceScore*0.3 + reliability*0.2 + services*0.1).Round(2)
	reasons := []string{
		fmt.Sprintf("%s quality: %.0f%% match", supplier.Quality, alignment*100),
		fmt.Sprintf("price competitiveness: %.0f%%", priceScore*100),
		fmt.Sprintf("reliability: %.0f%%", reliability*100),
		fmt.Sprintf("value-added services: %.0f%%", services*100),
	}

	return Suitability{
		Suitable: score.GreaterThanOrEqual(suitableScore),
		Score:    score,
		Reason:   strings.Join(reasons, ", "),
	}
}
