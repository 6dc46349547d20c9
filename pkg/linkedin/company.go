package linkedin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/codeGROOVE-dev/linkedinbot/pkg/httpcache"
	"github.com/codeGROOVE-dev/linkedinbot/pkg/profile"
)

const companyDecoration = "com.linkedin.voyager.deco.organization.web.WebFullCompanyMain-12"

// CompanyOptions selects the optional parts of a company scrape.
type CompanyOptions struct {
	// Jobs requests the company's open job listings.
	Jobs bool
}

// ScrapeCompany fetches the company identified by companyID, which may be a
// universal name or a linkedin.com/company/ URL.
//
// When the Voyager company lookup fails for a reason other than
// authentication, the overview is recovered from the data embedded in the
// public about page.
func (c *Client) ScrapeCompany(ctx context.Context, token, companyID string, opts CompanyOptions) (profile.Record, error) {
	slug := CompanySlug(companyID)
	if slug == "" {
		return nil, fmt.Errorf("%w: cannot extract a company name from %q", profile.ErrProfileNotFound, companyID)
	}

	c.logger.InfoContext(ctx, "scraping linkedin company", "company", slug, "jobs", opts.Jobs)

	s, err := c.newSession(ctx, token)
	if err != nil {
		return nil, err
	}

	company, err := s.fetchCompany(ctx, slug)
	if err != nil {
		if errors.Is(err, profile.ErrAuthRequired) || ctx.Err() != nil {
			return nil, fmt.Errorf("fetch company %s: %w", slug, err)
		}
		c.logger.WarnContext(ctx, "company api failed, trying about page", "company", slug, "error", err)

		fallback, ferr := s.fetchAboutPage(ctx, slug)
		if ferr != nil {
			c.logger.DebugContext(ctx, "about page fallback failed", "company", slug, "error", ferr)
			return nil, fmt.Errorf("fetch company %s: %w", slug, err)
		}
		company = fallback
	}

	jobs := []any{}
	if opts.Jobs {
		if id := urnID(company.Get("entityUrn").String()); id != "" {
			jobs, err = s.fetchJobs(ctx, id)
			if err != nil {
				if errors.Is(err, profile.ErrAuthRequired) {
					return nil, fmt.Errorf("fetch jobs for %s: %w", slug, err)
				}
				c.logger.WarnContext(ctx, "job listing fetch failed", "company", slug, "error", err)
				jobs = []any{}
			}
		} else {
			c.logger.DebugContext(ctx, "company has no id, skipping jobs", "company", slug)
		}
	}

	return profile.Record{
		string(profile.SectionOverview): parseOverview(company),
		string(profile.SectionJobs):     jobs,
	}, nil
}

func (s *session) fetchCompany(ctx context.Context, slug string) (gjson.Result, error) {
	q := url.Values{}
	q.Set("decorationId", companyDecoration)
	q.Set("q", "universalName")
	q.Set("universalName", slug)

	body, err := s.voyager(ctx, "organization/companies?"+q.Encode())
	if err != nil {
		return gjson.Result{}, err
	}

	company := gjson.GetBytes(body, "elements.0")
	if !company.Exists() {
		return gjson.Result{}, fmt.Errorf("%w: no company named %q", profile.ErrProfileNotFound, slug)
	}
	return company, nil
}

// fetchAboutPage extracts the company entity from the JSON LinkedIn embeds in
// <code> blocks on the about page.
func (s *session) fetchAboutPage(ctx context.Context, slug string) (gjson.Result, error) {
	pageURL := s.client.baseURL.String() + "/company/" + url.PathEscape(slug) + "/about/"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("request creation failed: %w", err)
	}
	setHeaders(req)

	body, err := httpcache.FetchURLWithValidator(ctx, s.client.cache, s.http, req, s.client.logger, hasCodeBlocks)
	if err != nil {
		return gjson.Result{}, classify(err)
	}

	company, ok := companyFromPage(body, slug)
	if !ok {
		return gjson.Result{}, fmt.Errorf("%w: no embedded company data for %q", profile.ErrProfileNotFound, slug)
	}
	return company, nil
}

func hasCodeBlocks(body []byte) bool {
	return bytes.Contains(body, []byte("<code"))
}

func companyFromPage(body []byte, slug string) (gjson.Result, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, false
	}

	var company gjson.Result
	query := fmt.Sprintf(`included.#(universalName==%q)`, slug)
	doc.Find("code").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		// Text() unescapes HTML entities.
		text := strings.TrimSpace(sel.Text())
		if !gjson.Valid(text) {
			return true
		}
		if c := gjson.Get(text, query); c.Exists() {
			company = c
			return false
		}
		return true
	})
	return company, company.Exists()
}

func (s *session) fetchJobs(ctx context.Context, companyID string) ([]any, error) {
	q := url.Values{}
	q.Set("decorationId", "com.linkedin.voyager.deco.jserp.WebJobSearchHitWithSalary-25")
	q.Set("count", "25")
	q.Set("filters", "List(companyIds->"+companyID+")")
	q.Set("origin", "COMPANY_PAGE_JOBS_CLUSTER_EXPANSION")
	q.Set("q", "jserpFilters")
	q.Set("start", "0")

	body, err := s.voyager(ctx, "jobs/search?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return parseJobs(gjson.ParseBytes(body), s.client.baseURL.String()), nil
}

func parseJobs(search gjson.Result, baseURL string) []any {
	jobs := []any{}
	search.Get("elements").ForEach(func(_, e gjson.Result) bool {
		// hitInfo is keyed by the decoration's type name.
		var posting gjson.Result
		e.Get("hitInfo").ForEach(func(_, hit gjson.Result) bool {
			posting = hit.Get("jobPostingResolutionResult")
			return !posting.Exists()
		})
		if !posting.Exists() {
			return true
		}

		link := ""
		if id := urnID(posting.Get("entityUrn").String()); id != "" {
			link = baseURL + "/jobs/view/" + id + "/"
		}
		listed := ""
		if ms := posting.Get("listedAt").Int(); ms > 0 {
			listed = time.UnixMilli(ms).UTC().Format(time.DateOnly)
		}
		jobs = append(jobs, map[string]any{
			"title":    posting.Get("title").String(),
			"location": posting.Get("formattedLocation").String(),
			"listed":   listed,
			"url":      link,
		})
		return true
	})
	return jobs
}

func parseOverview(c gjson.Result) map[string]any {
	website := c.Get("companyPageUrl").String()
	if website == "" {
		website = c.Get("websiteUrl").String()
	}

	industry := c.Get("companyIndustries.0.localizedName").String()
	if industry == "" {
		industry = firstString(c.Get("industries"))
	}

	companyType := c.Get("companyType.localizedName").String()
	if companyType == "" {
		companyType = c.Get("companyType").String()
	}

	return map[string]any{
		"description":   c.Get("description").String(),
		"name":          c.Get("name").String(),
		"company_size":  companySize(c.Get("staffCountRange")),
		"website":       website,
		"industry":      industry,
		"headquarters":  headquarters(c.Get("headquarter")),
		"type":          companyType,
		"specialties":   strings.Join(stringsOf(c.Get("specialities")), ", "),
		"num_employees": c.Get("staffCount").Value(),
		"image":         vectorImageURL(c.Get("logo.image")),
	}
}

func companySize(r gjson.Result) string {
	start, end := r.Get("start").Int(), r.Get("end").Int()
	switch {
	case start == 0 && end == 0:
		return ""
	case end == 0:
		return fmt.Sprintf("%d+ employees", start)
	default:
		return fmt.Sprintf("%d-%d employees", start, end)
	}
}

func headquarters(hq gjson.Result) string {
	var parts []string
	for _, k := range []string{"city", "geographicArea", "country"} {
		if s := hq.Get(k).String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func stringsOf(r gjson.Result) []string {
	var out []string
	for _, v := range r.Array() {
		if s := v.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}
