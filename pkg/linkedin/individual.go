package linkedin

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/linkedinbot/pkg/profile"
)

// ScrapeIndividual fetches the profile for userID, which may be a public
// identifier or a linkedin.com/in/ URL.
//
// The profileView request must succeed. Contact info, network info, skills
// and interests are fetched concurrently; an authentication failure in any of
// them aborts the scrape, other failures leave the affected fields empty.
func (c *Client) ScrapeIndividual(ctx context.Context, token, userID string) (profile.Record, error) {
	id := PublicID(userID)
	if id == "" {
		return nil, fmt.Errorf("%w: cannot extract a public id from %q", profile.ErrProfileNotFound, userID)
	}

	c.logger.InfoContext(ctx, "scraping linkedin profile", "id", id)

	s, err := c.newSession(ctx, token)
	if err != nil {
		return nil, err
	}

	base := "identity/profiles/" + url.PathEscape(id) + "/"

	view, err := s.voyager(ctx, base+"profileView")
	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", id, err)
	}

	var contact, network, skills, following []byte
	g, gctx := errgroup.WithContext(ctx)
	secondary := []struct {
		path string
		dst  *[]byte
	}{
		{base + "profileContactInfo", &contact},
		{base + "networkinfo", &network},
		{base + "featuredSkills?includeHiddenEndorsers=true&count=100", &skills},
		{base + "following?count=100", &following},
	}
	for _, sec := range secondary {
		g.Go(func() error {
			body, err := s.voyager(gctx, sec.path)
			if err != nil {
				if errors.Is(err, profile.ErrAuthRequired) {
					return fmt.Errorf("fetch %s: %w", sec.path, err)
				}
				c.logger.WarnContext(gctx, "secondary profile fetch failed", "id", id, "path", sec.path, "error", err)
				return nil
			}
			*sec.dst = body
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	v := gjson.ParseBytes(view)
	jobs := parsePositions(v.Get("positionView.elements"), c.baseURL.String())
	education := parseEducation(v.Get("educationView.elements"))

	rec := profile.Record{
		string(profile.SectionPersonalInfo): parsePersonalInfo(v, jobs, education, gjson.ParseBytes(contact), gjson.ParseBytes(network)),
		string(profile.SectionExperiences): map[string]any{
			"jobs":         jobs,
			"education":    education,
			"volunteering": parseVolunteering(v.Get("volunteerExperienceView.elements")),
		},
		string(profile.SectionSkills):          parseSkills(gjson.ParseBytes(skills)),
		string(profile.SectionAccomplishments): parseAccomplishments(v),
		string(profile.SectionInterests):       parseInterests(gjson.ParseBytes(following)),
	}

	c.logger.DebugContext(ctx, "linkedin profile scraped", "id", id,
		"jobs", len(jobs), "education", len(education))
	return rec, nil
}

func parsePersonalInfo(view gjson.Result, jobs, education []any, contact, network gjson.Result) map[string]any {
	p := view.Get("profile")

	name := strings.TrimSpace(p.Get("firstName").String() + " " + p.Get("lastName").String())
	location := p.Get("geoLocationName").String()
	if location == "" {
		location = p.Get("locationName").String()
	}

	info := map[string]any{
		"name":                 name,
		"headline":             p.Get("headline").String(),
		"company":              "",
		"school":               "",
		"location":             location,
		"summary":              p.Get("summary").String(),
		"image":                vectorImageURL(p.Get("miniProfile.picture")),
		"followers":            network.Get("followersCount").Value(),
		"email":                contact.Get("emailAddress").String(),
		"phone":                firstString(contact.Get("phoneNumbers.#.number")),
		"connected":            epochDate(contact.Get("connectedAt")),
		"websites":             strings2any(contact.Get("websites.#.url")),
		"current_company_link": "",
	}

	if len(jobs) > 0 {
		if job, ok := jobs[0].(map[string]any); ok {
			info["company"] = job["company"]
			info["current_company_link"] = job["li_company_url"]
		}
	}
	if len(education) > 0 {
		if school, ok := education[0].(map[string]any); ok {
			info["school"] = school["name"]
		}
	}
	return info
}

func parsePositions(elements gjson.Result, baseURL string) []any {
	jobs := []any{}
	elements.ForEach(func(_, e gjson.Result) bool {
		link := ""
		if cid := urnID(e.Get("companyUrn").String()); cid != "" {
			link = baseURL + "/company/" + cid + "/"
		}
		jobs = append(jobs, map[string]any{
			"title":          e.Get("title").String(),
			"company":        e.Get("companyName").String(),
			"date_range":     dateRange(e.Get("timePeriod")),
			"location":       e.Get("locationName").String(),
			"description":    e.Get("description").String(),
			"li_company_url": link,
		})
		return true
	})
	return jobs
}

func parseEducation(elements gjson.Result) []any {
	schools := []any{}
	elements.ForEach(func(_, e gjson.Result) bool {
		schools = append(schools, map[string]any{
			"name":           e.Get("schoolName").String(),
			"degree":         e.Get("degreeName").String(),
			"grades":         e.Get("grade").String(),
			"field_of_study": e.Get("fieldOfStudy").String(),
			"date_range":     dateRange(e.Get("timePeriod")),
			"activities":     e.Get("activities").String(),
		})
		return true
	})
	return schools
}

func parseVolunteering(elements gjson.Result) []any {
	roles := []any{}
	elements.ForEach(func(_, e gjson.Result) bool {
		roles = append(roles, map[string]any{
			"title":       e.Get("role").String(),
			"company":     e.Get("companyName").String(),
			"date_range":  dateRange(e.Get("timePeriod")),
			"cause":       e.Get("cause").String(),
			"description": e.Get("description").String(),
		})
		return true
	})
	return roles
}

// accomplishmentViews maps each accomplishment field to its profileView
// collection and the element attribute naming an entry.
var accomplishmentViews = []struct {
	field, view, attr string
}{
	{"publications", "publicationView", "name"},
	{"certifications", "certificationView", "name"},
	{"patents", "patentView", "title"},
	{"courses", "courseView", "name"},
	{"projects", "projectView", "title"},
	{"honors", "honorView", "title"},
	{"test_scores", "testScoreView", "name"},
	{"languages", "languageView", "name"},
	{"organizations", "organizationView", "name"},
}

func parseAccomplishments(view gjson.Result) map[string]any {
	out := make(map[string]any, len(accomplishmentViews))
	for _, a := range accomplishmentViews {
		out[a.field] = strings2any(view.Get(a.view + ".elements.#." + a.attr))
	}
	return out
}

func parseSkills(skills gjson.Result) []any {
	out := []any{}
	skills.Get("elements").ForEach(func(_, e gjson.Result) bool {
		name := e.Get("skill.name").String()
		if name == "" {
			name = e.Get("name").String()
		}
		if name == "" {
			return true
		}
		endorsements := e.Get("endorsementCount")
		if !endorsements.Exists() {
			endorsements = e.Get("skill.endorsementCount")
		}
		out = append(out, map[string]any{
			"name":         name,
			"endorsements": endorsementValue(endorsements),
		})
		return true
	})
	return out
}

func endorsementValue(r gjson.Result) any {
	if !r.Exists() {
		return float64(0)
	}
	return r.Value()
}

// parseInterests returns the display names of followed entities.
func parseInterests(following gjson.Result) []any {
	out := []any{}
	following.Get("elements").ForEach(func(_, e gjson.Result) bool {
		if name := entityName(e); name != "" {
			out = append(out, name)
		}
		return true
	})
	return out
}

// entityName finds a display name on a followed entity, which may be a
// company, a person, a group or a school.
func entityName(e gjson.Result) string {
	for _, path := range []string{"name", "entity.name", "miniCompany.name", "miniSchool.schoolName", "miniGroup.groupName"} {
		if v := e.Get(path).String(); v != "" {
			return v
		}
	}
	if first := e.Get("miniProfile.firstName").String(); first != "" {
		return strings.TrimSpace(first + " " + e.Get("miniProfile.lastName").String())
	}

	// Voyager nests entities under their fully-qualified type name.
	var name string
	e.Get("entity").ForEach(func(_, typed gjson.Result) bool {
		name = entityName(typed)
		return name == ""
	})
	return name
}

// vectorImageURL assembles the largest artifact of a Voyager VectorImage,
// which is nested under its type name.
func vectorImageURL(picture gjson.Result) string {
	var img string
	picture.ForEach(func(_, v gjson.Result) bool {
		root := v.Get("rootUrl").String()
		artifacts := v.Get("artifacts").Array()
		if root == "" || len(artifacts) == 0 {
			return true
		}
		img = root + artifacts[len(artifacts)-1].Get("fileIdentifyingUrlPathSegment").String()
		return false
	})
	return img
}

// dateRange renders a Voyager timePeriod as "Jan 2020 - Present".
func dateRange(period gjson.Result) string {
	start := voyagerDate(period.Get("startDate"))
	if start == "" {
		return ""
	}
	end := voyagerDate(period.Get("endDate"))
	if end == "" {
		end = "Present"
	}
	return start + " - " + end
}

func voyagerDate(d gjson.Result) string {
	year := d.Get("year").Int()
	if year == 0 {
		return ""
	}
	if month := d.Get("month").Int(); month >= 1 && month <= 12 {
		return fmt.Sprintf("%s %d", time.Month(month).String()[:3], year)
	}
	return fmt.Sprint(year)
}

// epochDate renders a millisecond timestamp as a date.
func epochDate(ms gjson.Result) string {
	if !ms.Exists() || ms.Int() == 0 {
		return ""
	}
	return time.UnixMilli(ms.Int()).UTC().Format(time.DateOnly)
}

// urnID returns the final component of a URN such as urn:li:fs_miniCompany:1234.
func urnID(urn string) string {
	if i := strings.LastIndexByte(urn, ':'); i >= 0 {
		return urn[i+1:]
	}
	return ""
}

func firstString(r gjson.Result) string {
	for _, v := range r.Array() {
		if s := v.String(); s != "" {
			return s
		}
	}
	return ""
}

func strings2any(r gjson.Result) []any {
	out := []any{}
	for _, v := range r.Array() {
		if s := v.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}
