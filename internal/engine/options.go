package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Options is the locally parsed view of an engine argument line. Parsing
// exists for two reasons only: rejecting obviously bad numeric values
// before the engine is spawned, and recovering target names for display
// and history. The original tokens are forwarded to the engine verbatim
// in Raw; unknown flags pass straight through.
//
// Targets is a best-effort recovery for display and history: tokens
// following an unknown flag are assumed to be its values, not targets.
type Options struct {
	Targets     []string
	Cores       int // 0 unset, -1 for "all"
	Jobs        int // same encoding as Cores
	LatencyWait int

	DryRun          bool
	Force           bool
	ForceAll        bool
	KeepGoing       bool
	Touch           bool
	Quiet           bool
	PrintShellCmds  bool
	Reason          bool
	NoLock          bool
	Unlock          bool
	RerunIncomplete bool
	List            bool

	ForcedRules []string
	ConfigFiles []string
	Overrides   []string // key=value pairs from --config

	Raw []string
}

// boolFlags maps flag spellings to setters. Mirrors the engine's own CLI
// grammar for the flags users pass through most often.
var boolFlags = map[string]func(*Options){
	"-n": func(o *Options) { o.DryRun = true }, "--dry-run": func(o *Options) { o.DryRun = true },
	"-f": func(o *Options) { o.Force = true }, "--force": func(o *Options) { o.Force = true },
	"-F": func(o *Options) { o.ForceAll = true }, "--forceall": func(o *Options) { o.ForceAll = true },
	"-k": func(o *Options) { o.KeepGoing = true }, "--keep-going": func(o *Options) { o.KeepGoing = true },
	"-t": func(o *Options) { o.Touch = true }, "--touch": func(o *Options) { o.Touch = true },
	"-q": func(o *Options) { o.Quiet = true }, "--quiet": func(o *Options) { o.Quiet = true },
	"-p": func(o *Options) { o.PrintShellCmds = true }, "--printshellcmds": func(o *Options) { o.PrintShellCmds = true },
	"-r": func(o *Options) { o.Reason = true }, "--reason": func(o *Options) { o.Reason = true },
	"-l": func(o *Options) { o.List = true }, "--list": func(o *Options) { o.List = true },
	"--nolock":           func(o *Options) { o.NoLock = true },
	"--unlock":           func(o *Options) { o.Unlock = true },
	"--rerun-incomplete": func(o *Options) { o.RerunIncomplete = true },
}

// listFlags consume every following token up to the next flag.
var listFlags = map[string]func(*Options, []string){
	"-R": func(o *Options, v []string) { o.ForcedRules = append(o.ForcedRules, v...) },
	"--forcerun": func(o *Options, v []string) { o.ForcedRules = append(o.ForcedRules, v...) },
	"--config": func(o *Options, v []string) { o.Overrides = append(o.Overrides, v...) },
	"--until": func(o *Options, v []string) {}, "--omit-from": func(o *Options, v []string) {},
	"--allowed-rules": func(o *Options, v []string) {},
}

// ParseArgs tokenizes and validates a command-line-style argument string.
func ParseArgs(argline string) (*Options, error) {
	tokens, err := SplitArgs(argline)
	if err != nil {
		return nil, err
	}

	opts := &Options{Raw: tokens}
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		flag, inline, hasInline := strings.Cut(tok, "=")
		if !strings.HasPrefix(tok, "-") {
			opts.Targets = append(opts.Targets, tok)
			continue
		}

		if set, ok := boolFlags[tok]; ok {
			set(opts)
			continue
		}

		if consume, ok := listFlags[flag]; ok {
			if hasInline {
				consume(opts, []string{inline})
				continue
			}
			j := i + 1
			for j < len(tokens) && !strings.HasPrefix(tokens[j], "-") {
				j++
			}
			consume(opts, tokens[i+1:j])
			i = j - 1
			continue
		}

		switch flag {
		case "-c", "--cores":
			i, err = takeCount(tokens, i, inline, hasInline, &opts.Cores)
		case "-j", "--jobs":
			i, err = takeCount(tokens, i, inline, hasInline, &opts.Jobs)
		case "--latency-wait":
			i, err = takeInt(tokens, i, inline, hasInline, &opts.LatencyWait)
		case "--configfile":
			var v string
			i, v, err = takeValue(tokens, i, inline, hasInline)
			opts.ConfigFiles = append(opts.ConfigFiles, v)
		default:
			// Unknown flag: forwarded untouched via Raw, and its value
			// tokens are skipped rather than collected as targets. Most
			// of the engine's value-taking options accept a variable
			// number of tokens, so target recovery stays best-effort;
			// the engine's parser is authoritative either way.
			if !hasInline {
				for i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") {
					i++
				}
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return opts, nil
}

func takeValue(tokens []string, i int, inline string, hasInline bool) (int, string, error) {
	if hasInline {
		return i, inline, nil
	}
	if i+1 >= len(tokens) {
		return i, "", fmt.Errorf("%s requires a value", tokens[i])
	}
	return i + 1, tokens[i+1], nil
}

func takeInt(tokens []string, i int, inline string, hasInline bool, dst *int) (int, error) {
	flag := strings.SplitN(tokens[i], "=", 2)[0]
	i, v, err := takeValue(tokens, i, inline, hasInline)
	if err != nil {
		return i, err
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return i, fmt.Errorf("invalid value for %s: %q (expected a non-negative integer)", flag, v)
	}
	*dst = n
	return i, nil
}

// takeCount parses a core/job count: a positive integer or "all".
func takeCount(tokens []string, i int, inline string, hasInline bool, dst *int) (int, error) {
	flag := strings.SplitN(tokens[i], "=", 2)[0]
	i, v, err := takeValue(tokens, i, inline, hasInline)
	if err != nil {
		return i, err
	}
	if v == "all" {
		*dst = -1
		return i, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return i, fmt.Errorf("invalid value for %s: %q (expected a positive integer or \"all\")", flag, v)
	}
	*dst = n
	return i, nil
}

// SplitArgs tokenizes an argument string, honoring single and double
// quotes. No escape processing beyond quote pairing; the shell this
// imitates is the engine's CLI, not POSIX sh.
func SplitArgs(s string) ([]string, error) {
	var (
		tokens  []string
		cur     strings.Builder
		quote   rune
		inToken bool
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			// Quoted segments join the surrounding token, so key="a b"
			// stays one token. inToken makes '' produce an empty token.
			quote = r
			inToken = true
		case r == ' ' || r == '\t' || r == '\n':
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c-quoted string", quote)
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}
