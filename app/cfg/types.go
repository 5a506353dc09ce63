package cfg

type Cfg struct {
	DBPath          string
	Port            string
	SuggestionsFile string
	FetchTimeout    int // seconds
	UserAgent       string
	Timezone        string
	Debug           bool
	Version         string
}
