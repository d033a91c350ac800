package ownership

import (
	"context"
	"testing"

	"github.com/registrylens/registry-risk/internal/registry"
)

type fakeClient struct {
	pscs  map[string]*registry.PSCList
	calls []string
}

func (f *fakeClient) PSCs(_ context.Context, companyNumber string) (*registry.PSCList, error) {
	f.calls = append(f.calls, companyNumber)
	return f.pscs[companyNumber], nil
}

func individualPSC(name, nationality string) registry.PSC {
	return registry.PSC{
		Name:             name,
		Kind:             "individual-person-with-significant-control",
		Nationality:      nationality,
		NaturesOfControl: []string{"ownership-of-shares-75-to-100-percent"},
	}
}

func corporatePSC(name, regNumber, place, country string) registry.PSC {
	psc := registry.PSC{
		Name: name,
		Kind: "corporate-entity-person-with-significant-control",
	}
	psc.Identification.RegistrationNumber = regNumber
	psc.Identification.PlaceRegistered = place
	psc.Identification.CountryRegistered = country
	return psc
}

func TestTraceFollowsDomesticHoldingChain(t *testing.T) {
	client := &fakeClient{pscs: map[string]*registry.PSCList{
		"01111111": {Items: []registry.PSC{corporatePSC("HOLDCO LTD", "02222222", "England", "")}},
		"02222222": {Items: []registry.PSC{individualPSC("SMITH, Jane", "British")}},
	}}

	structure := NewTracer(client).Trace(context.Background(), "01111111")

	if len(structure.Layers) != 1 {
		t.Fatalf("expected one root layer, got %d", len(structure.Layers))
	}
	root := structure.Layers[0]
	if root.Terminal || len(root.SubLayers) != 1 {
		t.Fatalf("holding company should have been followed: %+v", root)
	}
	if !root.SubLayers[0].Terminal || root.SubLayers[0].Name != "SMITH, Jane" {
		t.Fatalf("unexpected terminal holder: %+v", root.SubLayers[0])
	}

	summary := Summarize(structure)
	if summary.CorporateLayers != 1 || summary.Trusts != 0 || len(summary.ForeignEntities) != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestTraceCircularOwnershipTerminates(t *testing.T) {
	client := &fakeClient{pscs: map[string]*registry.PSCList{
		"01111111": {Items: []registry.PSC{corporatePSC("B HOLDINGS LTD", "02222222", "England", "")}},
		"02222222": {Items: []registry.PSC{corporatePSC("A HOLDINGS LTD", "01111111", "England", "")}},
	}}

	structure := NewTracer(client).Trace(context.Background(), "01111111")

	if len(client.calls) != 2 {
		t.Fatalf("cycle should stop after two lookups, got %v", client.calls)
	}
	inner := structure.Layers[0].SubLayers[0]
	if !inner.Untraceable {
		t.Fatalf("revisited company should be marked untraceable: %+v", inner)
	}
}

func TestTraceDepthLimit(t *testing.T) {
	// Five-deep chain of distinct holding companies.
	client := &fakeClient{pscs: map[string]*registry.PSCList{
		"00000001": {Items: []registry.PSC{corporatePSC("L1", "00000002", "England", "")}},
		"00000002": {Items: []registry.PSC{corporatePSC("L2", "00000003", "England", "")}},
		"00000003": {Items: []registry.PSC{corporatePSC("L3", "00000004", "England", "")}},
		"00000004": {Items: []registry.PSC{corporatePSC("L4", "00000005", "England", "")}},
		"00000005": {Items: []registry.PSC{corporatePSC("L5", "00000006", "England", "")}},
	}}

	NewTracer(client).Trace(context.Background(), "00000001")

	// Depth 0 through 3 are fetched; the level past maxDepth is not.
	if len(client.calls) != 4 {
		t.Fatalf("expected traversal to stop at depth limit, calls=%v", client.calls)
	}
}

func TestTraceForeignAndTrustHolders(t *testing.T) {
	trust := registry.PSC{Name: "THE FAMILY SETTLEMENT", Kind: "legal-person-person-with-significant-control"}
	client := &fakeClient{pscs: map[string]*registry.PSCList{
		"01111111": {Items: []registry.PSC{
			corporatePSC("OFFSHORE HOLDINGS SA", "B12345", "Luxembourg", "Luxembourg"),
			trust,
		}},
	}}

	structure := NewTracer(client).Trace(context.Background(), "01111111")

	if len(client.calls) != 1 {
		t.Fatalf("foreign holder must not be followed, calls=%v", client.calls)
	}
	summary := Summarize(structure)
	if len(summary.ForeignEntities) != 1 || summary.ForeignEntities[0].Jurisdiction != "Luxembourg Luxembourg" {
		t.Fatalf("unexpected foreign entities: %+v", summary.ForeignEntities)
	}
	if summary.Trusts != 1 {
		t.Fatalf("trust holder not counted: %+v", summary)
	}
}

func TestTraceSkipsCeasedHolders(t *testing.T) {
	ceased := individualPSC("FORMER OWNER", "British")
	ceased.CeasedOn = "2020-01-01"
	client := &fakeClient{pscs: map[string]*registry.PSCList{
		"01111111": {Items: []registry.PSC{ceased, individualPSC("CURRENT OWNER", "British")}},
	}}

	structure := NewTracer(client).Trace(context.Background(), "01111111")
	if len(structure.Layers) != 1 || structure.Layers[0].Name != "CURRENT OWNER" {
		t.Fatalf("ceased holder should be excluded: %+v", structure.Layers)
	}
}
