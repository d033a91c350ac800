// Package ownership resolves a company's control chain by walking corporate
// control-holders recursively through the registry.
package ownership

import (
	"context"
	"strings"

	"github.com/registrylens/registry-risk/internal/registry"
)

// Client is the subset of the registry client the tracer needs.
type Client interface {
	PSCs(ctx context.Context, companyNumber string) (*registry.PSCList, error)
}

// Node is one control-holder in the traced structure. Corporate holders
// registered domestically carry their own SubLayers.
type Node struct {
	Name               string   `json:"name"`
	Kind               string   `json:"kind"`
	NaturesOfControl   []string `json:"natures_of_control"`
	Depth              int      `json:"depth"`
	CompanyNumber      string   `json:"company_number"`
	Terminal           bool     `json:"terminal"`
	Nationality        string   `json:"nationality,omitempty"`
	RegistrationNumber string   `json:"registration_number,omitempty"`
	Jurisdiction       string   `json:"jurisdiction,omitempty"`
	Foreign            bool     `json:"foreign,omitempty"`
	Trust              bool     `json:"is_trust,omitempty"`
	Untraceable        bool     `json:"untraceable,omitempty"`
	SubLayers          []Node   `json:"sub_layers,omitempty"`
}

// Structure is the traced control chain rooted at one company.
type Structure struct {
	Layers      []Node `json:"layers"`
	Depth       int    `json:"depth"`
	Untraceable bool   `json:"untraceable"`
}

// Summary aggregates the traced structure for rating.
type Summary struct {
	CorporateLayers int
	ForeignEntities []ForeignEntity
	Trusts          int
	MaxDepth        int
}

// ForeignEntity names a control-holder registered outside the domestic registry.
type ForeignEntity struct {
	Name         string
	Jurisdiction string
}

// Tracer walks control chains breadth-first per company, depth-first across
// holders, up to a fixed depth.
type Tracer struct {
	client   Client
	maxDepth int
}

// NewTracer builds a tracer over the given registry client.
func NewTracer(client Client) *Tracer {
	return &Tracer{client: client, maxDepth: 3}
}

// Trace resolves the control chain for a company. Registry failures degrade
// to empty layers rather than aborting the traversal.
func (t *Tracer) Trace(ctx context.Context, companyNumber string) Structure {
	visited := make(map[string]bool)
	return t.trace(ctx, companyNumber, 0, visited)
}

func (t *Tracer) trace(ctx context.Context, companyNumber string, depth int, visited map[string]bool) Structure {
	// The visited set spans the whole traversal so shared parents and
	// circular holdings terminate instead of looping.
	if visited[companyNumber] || depth > t.maxDepth {
		return Structure{Untraceable: true, Layers: []Node{}, Depth: depth}
	}
	visited[companyNumber] = true

	list, err := t.client.PSCs(ctx, companyNumber)
	var items []registry.PSC
	if err == nil && list != nil {
		items = list.Items
	}

	var layers []Node
	for _, psc := range items {
		if psc.CeasedOn != "" {
			continue
		}

		node := Node{
			Name:             psc.Name,
			Kind:             psc.Kind,
			NaturesOfControl: psc.NaturesOfControl,
			Depth:            depth,
			CompanyNumber:    companyNumber,
		}
		if node.Name == "" {
			node.Name = "Unknown"
		}

		switch {
		case strings.Contains(psc.Kind, "individual"):
			node.Terminal = true
			node.Nationality = psc.Nationality

		case strings.Contains(psc.Kind, "corporate"):
			ident := psc.Identification
			node.RegistrationNumber = ident.RegistrationNumber
			node.Jurisdiction = strings.TrimSpace(ident.PlaceRegistered + " " + ident.CountryRegistered)

			if ident.RegistrationNumber != "" && isDomesticRegistration(ident) {
				sub := t.trace(ctx, ident.RegistrationNumber, depth+1, visited)
				node.SubLayers = sub.Layers
				node.Untraceable = sub.Untraceable
			} else {
				node.Foreign = true
				node.Terminal = true
			}

		case strings.Contains(psc.Kind, "legal-person"):
			node.Terminal = true
			node.Trust = true
		}

		layers = append(layers, node)
	}

	return Structure{Layers: layers, Depth: depth}
}

// isDomesticRegistration decides whether a corporate holder can be followed
// in the domestic registry. Eight-digit numeric registrations are assumed
// domestic even when the jurisdiction text is vague.
func isDomesticRegistration(ident registry.PSCIdentification) bool {
	place := strings.ToLower(ident.PlaceRegistered)
	country := strings.ToLower(ident.CountryRegistered)
	if strings.Contains(place, "england") ||
		strings.Contains(place, "wales") ||
		strings.Contains(place, "companies house") ||
		strings.Contains(country, "united kingdom") {
		return true
	}
	return isAllDigits(ident.RegistrationNumber) && len(ident.RegistrationNumber) == 8
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Summarize walks a traced structure and counts corporate layers, foreign
// holders, trusts, and the deepest level reached.
func Summarize(s Structure) Summary {
	var summary Summary
	countStructure(s.Layers, 0, &summary)
	return summary
}

func countStructure(layers []Node, depth int, summary *Summary) {
	for _, layer := range layers {
		if depth > summary.MaxDepth {
			summary.MaxDepth = depth
		}
		if layer.Trust {
			summary.Trusts++
		}
		if layer.Foreign {
			jurisdiction := layer.Jurisdiction
			if jurisdiction == "" {
				jurisdiction = "Unknown"
			}
			summary.ForeignEntities = append(summary.ForeignEntities, ForeignEntity{
				Name:         layer.Name,
				Jurisdiction: jurisdiction,
			})
		}
		if !layer.Terminal || len(layer.SubLayers) > 0 {
			summary.CorporateLayers++
			countStructure(layer.SubLayers, depth+1, summary)
		}
	}
}
