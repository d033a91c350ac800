// mock-registry serves canned company-registry payloads so the engine can be
// exercised locally without an API key or live quota. Any company number
// works; 99999999 returns 404 everywhere.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"
)

const unknownCompany = "99999999"

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/company/", companyRoutes)
	mux.HandleFunc("/officers/", officerRoutes)
	mux.HandleFunc("/disqualified-officers/natural/", func(w http.ResponseWriter, r *http.Request) {
		// No disqualifications in the fixture set.
		w.WriteHeader(http.StatusNotFound)
	})

	logger := log.New(log.Writer(), "registry-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":8090",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :8090")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

// companyRoutes dispatches /company/{number}[/resource] paths.
func companyRoutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	number := parts[1]
	if number == unknownCompany {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	resource := ""
	if len(parts) > 2 {
		resource = strings.Join(parts[2:], "/")
	}

	switch resource {
	case "":
		writeJSON(w, companyProfile(number))
	case "officers":
		writeJSON(w, officerList())
	case "persons-with-significant-control":
		writeJSON(w, pscList())
	case "persons-with-significant-control-statements":
		writeJSON(w, map[string]any{"items": []any{}, "total_results": 0})
	case "filing-history":
		writeJSON(w, filingHistory())
	case "charges":
		writeJSON(w, chargeList())
	case "insolvency":
		w.WriteHeader(http.StatusNotFound)
	case "registered-office-address":
		writeJSON(w, registeredOffice())
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// officerRoutes serves /officers/{id}/appointments.
func officerRoutes(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/appointments") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, appointmentList())
}

func companyProfile(number string) map[string]any {
	return map[string]any{
		"company_number":            number,
		"company_name":              "BRIDGE TRADING LIMITED",
		"company_status":            "active",
		"type":                      "ltd",
		"date_of_creation":          "2015-03-12",
		"sic_codes":                 []string{"46190", "70229"},
		"registered_office_address": registeredOffice(),
		"accounts": map[string]any{
			"overdue":         false,
			"next_made_up_to": "2026-03-31",
		},
		"confirmation_statement": map[string]any{
			"overdue": false,
		},
	}
}

func registeredOffice() map[string]any {
	return map[string]any{
		"address_line_1": "14 Harbour Street",
		"locality":       "Leeds",
		"postal_code":    "LS1 4DT",
		"country":        "England",
	}
}

func officerList() map[string]any {
	return map[string]any{
		"items": []map[string]any{
			{
				"name":         "DOYLE, Martin",
				"officer_role": "director",
				"appointed_on": "2015-03-12",
				"links": map[string]any{
					"officer": map[string]any{
						"appointments": "/officers/a1b2c3d4/appointments",
					},
				},
			},
			{
				"name":         "DOYLE, Sarah",
				"officer_role": "secretary",
				"appointed_on": "2016-01-04",
				"links": map[string]any{
					"officer": map[string]any{
						"appointments": "/officers/e5f6a7b8/appointments",
					},
				},
			},
		},
		"total_results": 2,
	}
}

func appointmentList() map[string]any {
	return map[string]any{
		"items": []map[string]any{
			{
				"appointed_on": "2015-03-12",
				"appointed_to": map[string]any{
					"company_name":   "BRIDGE TRADING LIMITED",
					"company_number": "09441150",
					"company_status": "active",
				},
			},
			{
				"appointed_on": "2011-06-20",
				"resigned_on":  "2014-09-30",
				"appointed_to": map[string]any{
					"company_name":   "DOYLE CONSULTING LIMITED",
					"company_number": "07684420",
					"company_status": "dissolved",
				},
			},
		},
		"total_results": 2,
	}
}

func pscList() map[string]any {
	return map[string]any{
		"items": []map[string]any{
			{
				"name":               "Mr Martin Doyle",
				"kind":               "individual-person-with-significant-control",
				"notified_on":        "2016-04-06",
				"natures_of_control": []string{"ownership-of-shares-75-to-100-percent"},
				"nationality":        "British",
			},
		},
		"total_results": 1,
	}
}

func filingHistory() map[string]any {
	year := time.Now().Year() - 1
	return map[string]any{
		"items": []map[string]any{
			{
				"category":    "accounts",
				"type":        "AA",
				"date":        dateOf(year, 12, 20),
				"description": "accounts-with-accounts-type-total-exemption-full",
				"action_date": dateOf(year, 3, 31),
			},
			{
				"category": "confirmation-statement",
				"type":     "CS01",
				"date":     dateOf(year, 4, 2),
			},
		},
		"total_count": 2,
	}
}

func chargeList() map[string]any {
	return map[string]any{
		"items": []map[string]any{
			{
				"status":     "outstanding",
				"created_on": "2019-08-14",
				"persons_entitled": []map[string]any{
					{"name": "NORTHBANK FINANCE PLC"},
				},
				"particulars": map[string]any{
					"floating_charge_covers_all": true,
				},
			},
		},
		"total_count": 1,
	}
}

func dateOf(year, month, day int) string {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
