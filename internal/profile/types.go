package profile

// Record is the profile owner's résumé as shown on the page. It is loaded
// once at startup and never mutated afterwards.
type Record struct {
	Name       string       `yaml:"name" json:"name"`
	Title      string       `yaml:"title" json:"title"`
	Location   string       `yaml:"location" json:"location"`
	Email      string       `yaml:"email" json:"email"`
	Phone      string       `yaml:"phone" json:"phone"`
	LinkedIn   string       `yaml:"linkedin" json:"linkedin"`
	Summary    string       `yaml:"summary" json:"summary"` // markdown
	Experience []Experience `yaml:"experience" json:"experience"`
	Education  []Education  `yaml:"education" json:"education"`
	Skills     Skills       `yaml:"skills" json:"skills"`
}

// Experience is a single position held by the profile owner.
type Experience struct {
	Role     string   `yaml:"role" json:"role"`
	Company  string   `yaml:"company" json:"company"`
	From     string   `yaml:"from" json:"from"`
	Location string   `yaml:"location" json:"location,omitempty"`
	Bullets  []string `yaml:"bullets" json:"bullets,omitempty"` // markdown, one line each
}

// Education is a single degree.
type Education struct {
	Degree string `yaml:"degree" json:"degree"`
	School string `yaml:"school" json:"school"`
	Year   string `yaml:"year" json:"year"`
}

// Skills splits the owner's skills into core and technical lists.
type Skills struct {
	Core      []string `yaml:"core" json:"core"`
	Technical []string `yaml:"technical" json:"technical"`
}
