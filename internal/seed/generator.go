package seed

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"moments/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// GenerateOptions sizes a synthetic dataset.
type GenerateOptions struct {
	Users          int
	MomentsPerUser int
	// RSVPsPerUser and FollowsPerUser are upper bounds; pairs that would
	// break uniqueness or self-reference are skipped.
	RSVPsPerUser   int
	FollowsPerUser int
	// BusinessShare is the fraction of users flagged as business accounts.
	BusinessShare float64
	// Seed makes generation deterministic. Zero picks a time-based seed.
	Seed int64
	// Now anchors dates: past moments before it, upcoming ones after it.
	Now time.Time
}

// DefaultGenerateOptions is a small but non-trivial dataset.
var DefaultGenerateOptions = GenerateOptions{
	Users:          25,
	MomentsPerUser: 2,
	RSVPsPerUser:   4,
	FollowsPerUser: 5,
	BusinessShare:  0.2,
}

var (
	momentKinds = []string{
		"Open Mic", "Coffee Tasting", "Book Club", "Board Game Night", "Run Club",
		"Pottery Class", "Trivia Night", "Hack Night", "Picnic", "Jam Session",
		"Film Screening", "Supper Club", "Sketch Meetup", "Language Exchange",
	}
	venueKinds = []string{"Cafe", "Bar", "Studio", "Park", "Library", "Rooftop", "Gallery"}

	usernameStrip = regexp.MustCompile(`[^a-z0-9._]`)
)

// Generator builds synthetic users, moments, RSVPs and follows that satisfy
// every store invariant.
type Generator struct {
	faker *gofakeit.Faker
	now   time.Time

	usernames map[string]struct{}
	nextID    map[string]int
}

// NewGenerator returns a Generator. A zero seed picks a time-based one.
func NewGenerator(seed int64, now time.Time) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return &Generator{
		faker:     gofakeit.New(seed),
		now:       now.Truncate(time.Minute),
		usernames: make(map[string]struct{}),
		nextID:    make(map[string]int),
	}
}

func (g *Generator) id(prefix string) string {
	g.nextID[prefix]++
	return fmt.Sprintf("%s%d", prefix, g.nextID[prefix])
}

func (g *Generator) username(name string) string {
	base := usernameStrip.ReplaceAllString(strings.ToLower(strings.ReplaceAll(name, " ", "")), "")
	base = strings.Trim(base, "._")
	if len(base) > 24 {
		base = base[:24]
	}
	if len(base) < 3 {
		base = "user" + base
	}
	candidate := base
	for i := 2; ; i++ {
		if _, taken := g.usernames[candidate]; !taken {
			break
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	g.usernames[candidate] = struct{}{}
	return candidate
}

// BuildUser constructs a user. Overrides run after the defaults are filled in.
func (g *Generator) BuildUser(overrides ...func(*models.User)) models.User {
	name := g.faker.Name()
	user := models.User{
		ID:                g.id("user"),
		Name:              name,
		Username:          g.username(name),
		Bio:               g.faker.Sentence(8),
		ProfilePictureURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", g.faker.UUID()),
	}
	for _, override := range overrides {
		override(&user)
	}
	return user
}

// BuildBusiness constructs a business account named after a venue.
func (g *Generator) BuildBusiness(overrides ...func(*models.User)) models.User {
	name := fmt.Sprintf("%s %s", g.faker.LastName(), g.faker.RandomString(venueKinds))
	return g.BuildUser(append([]func(*models.User){func(u *models.User) {
		u.Name = name
		u.Username = g.username(name)
		u.Bio = "Your neighborhood " + strings.ToLower(name[strings.LastIndex(name, " ")+1:]) + " & event space"
		u.IsBusinessAccount = true
	}}, overrides...)...)
}

// BuildMoment constructs a moment hosted by host. Roughly a third are past.
func (g *Generator) BuildMoment(host models.User, overrides ...func(*models.Moment)) models.Moment {
	kind := g.faker.RandomString(momentKinds)
	offset := time.Duration(g.faker.Number(1, 60*24)) * time.Hour
	status := models.MomentStatusUpcoming
	date := g.now.Add(offset)
	if g.faker.Number(1, 3) == 1 {
		status = models.MomentStatusPast
		date = g.now.Add(-offset)
	}
	created := date.Add(-time.Duration(g.faker.Number(24, 24*30)) * time.Hour)
	if created.After(g.now) {
		created = g.now.Add(-time.Duration(g.faker.Number(1, 72)) * time.Hour)
	}

	location := host.Name
	if !host.IsBusinessAccount {
		location = fmt.Sprintf("%s %s", g.faker.City(), g.faker.RandomString(venueKinds))
	}

	moment := models.Moment{
		ID:          g.id("moment"),
		HostID:      host.ID,
		Title:       kind,
		Description: g.faker.Sentence(12),
		Date:        date,
		MaxCapacity: g.faker.Number(2, 20) * 5,
		Location:    location,
		Status:      status,
		CreatedAt:   created,
	}
	for _, override := range overrides {
		override(&moment)
	}
	return moment
}

// BuildRSVP constructs an RSVP by user on moment, created after the moment was.
func (g *Generator) BuildRSVP(user models.User, moment models.Moment, overrides ...func(*models.RSVP)) models.RSVP {
	statuses := []string{
		string(models.RSVPStatusGoing), string(models.RSVPStatusGoing),
		string(models.RSVPStatusMaybe), string(models.RSVPStatusNotGoing),
	}
	created := moment.CreatedAt.Add(time.Duration(g.faker.Number(1, 240)) * time.Hour)
	if created.After(g.now) {
		created = g.now
	}
	rsvp := models.RSVP{
		ID:        g.id("rsvp"),
		UserID:    user.ID,
		MomentID:  moment.ID,
		Status:    models.RSVPStatus(g.faker.RandomString(statuses)),
		CreatedAt: created,
	}
	for _, override := range overrides {
		override(&rsvp)
	}
	return rsvp
}

// BuildFollow constructs a follow edge.
func (g *Generator) BuildFollow(follower, followed models.User, overrides ...func(*models.Follow)) models.Follow {
	follow := models.Follow{
		ID:         g.id("follow"),
		FollowerID: follower.ID,
		FollowedID: followed.ID,
		CreatedAt:  g.now.Add(-time.Duration(g.faker.Number(1, 24*90)) * time.Hour),
	}
	for _, override := range overrides {
		override(&follow)
	}
	return follow
}

// Generate builds a complete dataset.
func Generate(opts GenerateOptions) *models.Dataset {
	g := NewGenerator(opts.Seed, opts.Now)
	ds := &models.Dataset{}
	if opts.Users <= 0 {
		return ds
	}

	businesses := int(float64(opts.Users) * opts.BusinessShare)
	for i := 0; i < opts.Users; i++ {
		if i < businesses {
			ds.Users = append(ds.Users, g.BuildBusiness())
		} else {
			ds.Users = append(ds.Users, g.BuildUser())
		}
	}

	for _, host := range ds.Users {
		n := opts.MomentsPerUser
		if host.IsBusinessAccount {
			n *= 2
		}
		for j := 0; j < n; j++ {
			ds.Moments = append(ds.Moments, g.BuildMoment(host))
		}
	}

	if len(ds.Moments) > 0 {
		for _, user := range ds.Users {
			seen := make(map[string]struct{})
			for j := 0; j < opts.RSVPsPerUser; j++ {
				moment := ds.Moments[g.faker.Number(0, len(ds.Moments)-1)]
				if moment.HostID == user.ID {
					continue
				}
				if _, dup := seen[moment.ID]; dup {
					continue
				}
				seen[moment.ID] = struct{}{}
				ds.RSVPs = append(ds.RSVPs, g.BuildRSVP(user, moment))
			}
		}
	}

	for _, follower := range ds.Users {
		seen := make(map[string]struct{})
		for j := 0; j < opts.FollowsPerUser; j++ {
			followed := ds.Users[g.faker.Number(0, len(ds.Users)-1)]
			if followed.ID == follower.ID {
				continue
			}
			if _, dup := seen[followed.ID]; dup {
				continue
			}
			seen[followed.ID] = struct{}{}
			ds.Follows = append(ds.Follows, g.BuildFollow(follower, followed))
		}
	}

	return ds
}
