package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

var (
	llmMu  sync.Mutex
	llmLog *log.Logger
)

// SetLLMWriter routes prompt/reply transcripts to w. A nil writer disables transcripts.
func SetLLMWriter(w io.Writer) {
	llmMu.Lock()
	defer llmMu.Unlock()
	if w == nil {
		llmLog = nil
		return
	}
	llmLog = log.New(w, "", log.LstdFlags)
}

type llmSection struct {
	Title string
	Body  string
}

func logLLM(kind, source string, sections []llmSection) {
	llmMu.Lock()
	out := llmLog
	llmMu.Unlock()
	if out == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[LLM]")
	for _, tag := range []string{kind, source} {
		if tag == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(tag)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	out.Print(b.String())
}

// LogPrompt records the prompt pair sent to an advisory source.
func LogPrompt(source, systemPrompt, userPrompt string) {
	sections := make([]llmSection, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		sections = append(sections, llmSection{Title: "SYSTEM", Body: systemPrompt})
	}
	sections = append(sections, llmSection{Title: "USER", Body: userPrompt})
	logLLM("request", source, sections)
}

// LogReply records the raw advisory text returned by a source.
func LogReply(source, raw string) {
	logLLM("response", source, []llmSection{{Title: "RAW", Body: raw}})
}
