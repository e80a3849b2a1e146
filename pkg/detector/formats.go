package detector

import "regexp"

// BuildFormat is a known build tool log format with a starter rule set.
type BuildFormat struct {
	Name       string         // Human-readable name
	Pattern    *regexp.Regexp // Compiled signature (set during init)
	PatternStr string         // Signature line pattern
	Rules      string         // Starter rules in rule file syntax
	Examples   []string       // Example signature lines
}

// genericRules are suggested when no known format is recognised.
const genericRules = `error /(?i)\berror\b/ Errors
error /(?i)\bfailed\b/
warning /(?i)\bwarn(ing)?\b/ Warnings
`

// DefaultFormats returns the built-in build log formats to detect.
func DefaultFormats() []*BuildFormat {
	formats := []*BuildFormat{
		{
			Name:       "Maven",
			PatternStr: `^\[(INFO|WARNING|ERROR)\] `,
			Examples:   []string{"[INFO] Building app 1.0-SNAPSHOT", "[ERROR] Failed to execute goal"},
			Rules: `ok /^\[INFO\] BUILD SUCCESS/
start /^\[INFO\] Building / Module
start /^\[INFO\] --- / Plugin
error /^\[ERROR\]/ Errors
error /BUILD FAILURE/
warning /^\[WARNING\]/ Warnings
info /^\[INFO\] Tests run:/ Tests
`,
		},
		{
			Name:       "Gradle",
			PatternStr: `^> Task :`,
			Examples:   []string{"> Task :app:compileJava", "> Task :test FAILED"},
			Rules: `start /^> Task :/ Task
error /^FAILURE:/ Errors
error /^e: /
error /: error:/
error /^> Task \S+ FAILED/
warning /^w: / Warnings
warning /: warning:/
info /^BUILD SUCCESSFUL/
`,
		},
		{
			Name:       "Jenkins Pipeline",
			PatternStr: `^\[Pipeline\] `,
			Examples:   []string{"[Pipeline] { (Build)", "[Pipeline] sh"},
			Rules: `start /^\[Pipeline\] \{ \(/ Stage
error /^ERROR:/ Errors
error /^Finished: FAILURE/
warning /^WARNING:/ Warnings
warning /^Finished: UNSTABLE/
debug /^\[Pipeline\]/
`,
		},
		{
			Name:       "Go test",
			PatternStr: `^(=== RUN|--- (PASS|FAIL|SKIP):|ok\s+\S+\s|FAIL\s+\S+\s)`,
			Examples:   []string{"=== RUN   TestParse", "--- FAIL: TestParse (0.00s)", "ok  \texample.com/pkg\t0.012s"},
			Rules: `start /^=== RUN / Test
error /^--- FAIL:/ Failed tests
error /^FAIL\s/
error /^panic:/ Panics
warning /^--- SKIP:/ Skipped
info /^--- PASS:/
info /^ok\s/
`,
		},
		{
			Name:       "npm",
			PatternStr: `^npm (ERR!|WARN|notice) `,
			Examples:   []string{"npm WARN deprecated request@2.88.2", "npm ERR! code ELIFECYCLE"},
			Rules: `start /^> \S+@\S+ / Script
error /^npm ERR!/ Errors
warning /^npm WARN/ Warnings
info /^npm notice/
`,
		},
		{
			Name:       "Make/GCC",
			PatternStr: `^(make(\[\d+\])?: |\S+\.(c|cc|cpp|cxx|h|hpp):\d+:\d+: )`,
			Examples:   []string{"make[1]: Entering directory '/src'", "main.c:12:5: error: expected ';'"},
			Rules: `start /^make(\[\d+\])?: Entering directory/ Directory
error /: error: / Compiler errors
error /^make(\[\d+\])?: \*\*\*/
warning /: warning: / Compiler warnings
info /: note: /
`,
		},
	}

	// Compile all patterns
	for _, f := range formats {
		f.Pattern = regexp.MustCompile(f.PatternStr)
	}

	return formats
}
