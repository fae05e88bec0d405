package tags

import "sort"

// Mapping translates vendor shelf names to one or more tags.
type Mapping map[string][]string

// Apply maps shelf vote counts onto a fresh counter. Shelves without a
// mapping are dropped. Shelves are visited in name order so tie-breaking
// does not depend on map iteration.
func (m Mapping) Apply(shelves map[string]int) *Counter {
	names := make([]string, 0, len(shelves))
	for name := range shelves {
		names = append(names, name)
	}
	sort.Strings(names)

	counter := NewCounter()
	for _, name := range names {
		mapped, ok := m[name]
		if !ok {
			continue
		}
		for _, tag := range mapped {
			counter.Add(tag, shelves[name])
		}
	}
	return counter
}

// Clone deep-copies the mapping.
func (m Mapping) Clone() Mapping {
	if m == nil {
		return nil
	}
	out := make(Mapping, len(m))
	for shelf, mapped := range m {
		out[shelf] = append([]string(nil), mapped...)
	}
	return out
}

// Shelves returns the mapped shelf names sorted alphabetically.
func (m Mapping) Shelves() []string {
	out := make([]string, 0, len(m))
	for shelf := range m {
		out = append(out, shelf)
	}
	sort.Strings(out)
	return out
}

// DefaultMapping returns a fresh copy of the built-in shelf dictionary.
func DefaultMapping() Mapping {
	return defaultMapping.Clone()
}

var defaultMapping = Mapping{
	"adult-fiction":               {"Adult"},
	"adult":                       {"Adult"},
	"adventure":                   {"Adventure"},
	"anthologies":                 {"Anthologies"},
	"art":                         {"Art"},
	"biography":                   {"Biography"},
	"business":                    {"Business"},
	"chick-lit":                   {"Chick-lit"},
	"childrens":                   {"Childrens"},
	"classics":                    {"Classics"},
	"comedy":                      {"Humour"},
	"comics":                      {"Comics"},
	"comics-manga":                {"Comics"},
	"contemporary":                {"Contemporary"},
	"cookbooks":                   {"Cookbooks"},
	"crime":                       {"Crime"},
	"essays":                      {"Writing"},
	"fantasy":                     {"Fantasy"},
	"feminism":                    {"Feminism"},
	"fiction":                     {"Fiction"},
	"gardening":                   {"Gardening"},
	"gay":                         {"Gay"},
	"glbt":                        {"Gay"},
	"graphic-novels":              {"Comics"},
	"graphic-novels-comics":       {"Comics"},
	"graphic-novels-comics-manga": {"Comics"},
	"health":                      {"Health"},
	"historical-fiction":          {"Historical", "Fiction"},
	"history":                     {"History"},
	"horror":                      {"Horror"},
	"humor":                       {"Humour"},
	"inspirational":               {"Inspirational"},
	"manga":                       {"Comics"},
	"memoir":                      {"Biography"},
	"modern":                      {"Modern"},
	"music":                       {"Music"},
	"mystery":                     {"Mystery"},
	"non-fiction":                 {"Non-Fiction"},
	"paranormal":                  {"Paranormal"},
	"philosophy":                  {"Philosophy"},
	"poetry":                      {"Poetry"},
	"politics":                    {"Politics"},
	"psychology":                  {"Psychology"},
	"reference":                   {"Reference"},
	"religion":                    {"Religion"},
	"romance":                     {"Romance"},
	"sci-fi-and-fantasy":          {"Science Fiction", "Fantasy"},
	"sci-fi-fantasy":              {"Science Fiction", "Fantasy"},
	"science":                     {"Science"},
	"science-fiction":             {"Science Fiction"},
	"science-fiction-fantasy":     {"Science Fiction", "Fantasy"},
	"self-help":                   {"Self Help"},
	"sf-fantasy":                  {"Science Fiction", "Fantasy"},
	"sociology":                   {"Sociology"},
	"spirituality":                {"Spirituality"},
	"suspense":                    {"Suspense"},
	"thriller":                    {"Thriller"},
	"travel":                      {"Travel"},
	"vampires":                    {"Vampires"},
	"war":                         {"War"},
	"western":                     {"Western"},
	"writing":                     {"Writing"},
	"young-adult":                 {"Young Adult"},
	"ya":                          {"Young Adult"},
}
