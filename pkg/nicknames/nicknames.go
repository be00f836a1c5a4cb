// Package nicknames provides a precomputed bidirectional nickname-equivalence
// lookup ("Bob" <-> "Robert"). The index is built once at startup and is
// read-only afterwards.
package nicknames

import "github.com/perunhq/blackbook-sync/pkg/normalizers"

// defaultGroups is the built-in nickname table. Each group is one equivalence
// class of given names.
var defaultGroups = [][]string{
	{"robert", "rob", "bob", "bobby", "bert"},
	{"william", "will", "bill", "billy", "liam"},
	{"richard", "rich", "rick", "ricky", "dick"},
	{"james", "jim", "jimmy", "jamie"},
	{"john", "jack", "johnny", "jon"},
	{"jonathan", "jon", "jonny"},
	{"michael", "mike", "mikey", "mick"},
	{"christopher", "chris", "topher", "kit"},
	{"joseph", "joe", "joey"},
	{"thomas", "tom", "tommy"},
	{"charles", "charlie", "chuck", "chas"},
	{"daniel", "dan", "danny"},
	{"matthew", "matt", "matty"},
	{"anthony", "tony", "ant"},
	{"andrew", "andy", "drew"},
	{"edward", "ed", "eddie", "ted", "teddy", "ned"},
	{"benjamin", "ben", "benny", "benji"},
	{"samuel", "sam", "sammy"},
	{"alexander", "alex", "al", "sasha", "xander"},
	{"nicholas", "nick", "nicky"},
	{"david", "dave", "davey"},
	{"steven", "steve", "stevie"},
	{"stephen", "steve", "stevie"},
	{"kenneth", "ken", "kenny"},
	{"gregory", "greg"},
	{"timothy", "tim", "timmy"},
	{"peter", "pete"},
	{"lawrence", "larry"},
	{"ronald", "ron", "ronnie"},
	{"donald", "don", "donnie"},
	{"frederick", "fred", "freddie"},
	{"raymond", "ray"},
	{"gerald", "gerry", "jerry"},
	{"henry", "hank", "harry"},
	{"walter", "walt", "wally"},
	{"eugene", "gene"},
	{"leonard", "leo", "lenny"},
	{"albert", "al", "bert"},
	{"arthur", "art", "artie"},
	{"elizabeth", "liz", "lizzie", "beth", "betty", "eliza", "libby"},
	{"margaret", "maggie", "meg", "peggy", "marge", "margo"},
	{"katherine", "kate", "katie", "kathy", "kat", "kitty"},
	{"catherine", "cathy", "cat", "kate"},
	{"jennifer", "jen", "jenny"},
	{"jessica", "jess", "jessie"},
	{"patricia", "pat", "patty", "trish", "tricia"},
	{"barbara", "barb", "babs"},
	{"susan", "sue", "susie", "suzy"},
	{"deborah", "deb", "debbie"},
	{"rebecca", "becky", "becca"},
	{"victoria", "vicky", "tori"},
	{"kimberly", "kim"},
	{"cynthia", "cindy"},
	{"sandra", "sandy"},
	{"pamela", "pam"},
	{"christine", "chris", "chrissy", "tina"},
	{"stephanie", "steph"},
	{"samantha", "sam", "sammy"},
	{"alexandra", "alex", "sasha", "lexi"},
	{"nicole", "nikki"},
	{"michelle", "shelly"},
	{"danielle", "dani"},
	{"veronica", "ronnie"},
	{"dorothy", "dot", "dottie"},
	{"florence", "flo"},
	{"frances", "fran", "frannie"},
	{"gabrielle", "gabby"},
	{"isabella", "bella", "izzy"},
	{"josephine", "jo", "josie"},
	{"madeline", "maddie"},
	{"natalie", "nat"},
	{"olivia", "liv", "livvy"},
	{"sophia", "sophie"},
	{"theodore", "theo", "ted", "teddy"},
	{"zachary", "zach", "zack"},
}

// Index maps normalized given names to their equivalence group.
type Index struct {
	groupOf map[string]int
}

// NewIndex builds an index from explicit groups. Names are normalized on the
// way in; a name appearing in several groups joins all of them transitively.
func NewIndex(groups [][]string) *Index {
	idx := &Index{groupOf: make(map[string]int)}

	parent := make([]int, len(groups))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	seen := make(map[string]int)
	for g, group := range groups {
		for _, name := range group {
			name = normalizers.NormalizeName(name)
			if name == "" {
				continue
			}
			if prior, ok := seen[name]; ok {
				parent[find(g)] = find(prior)
				continue
			}
			seen[name] = g
		}
	}

	for g, group := range groups {
		root := find(g)
		for _, name := range group {
			name = normalizers.NormalizeName(name)
			if name != "" {
				idx.groupOf[name] = root
			}
		}
	}

	return idx
}

// DefaultIndex builds the index from the built-in nickname table.
func DefaultIndex() *Index {
	return NewIndex(defaultGroups)
}

// Equivalent reports whether two given names belong to the same nickname
// group. Identical normalized names are always equivalent.
func (i *Index) Equivalent(a, b string) bool {
	na := normalizers.NormalizeName(a)
	nb := normalizers.NormalizeName(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	ga, okA := i.groupOf[na]
	gb, okB := i.groupOf[nb]
	return okA && okB && ga == gb
}
