package judgment

import (
	"time"

	appErr "judgeworker/pkg/errors"
)

// CodeLanguage identifies a supported submission language.
type CodeLanguage string

const (
	LangJava17      CodeLanguage = "JAVA17"
	LangNodeJS20    CodeLanguage = "NODEJS20" // CommonJS
	LangNodeJS20ESM CodeLanguage = "NODEJS20ESM"
	LangPython3     CodeLanguage = "PYTHON3"
	LangC11         CodeLanguage = "C11"
	LangCPP17       CodeLanguage = "CPP17"
)

// compileTimeBonus is the extra wall time granted to languages whose runner
// performs a compile step before the first test case.
const compileTimeBonus = 5 * time.Second

var sourceFileNames = map[CodeLanguage]string{
	LangJava17:      "Main.java",
	LangNodeJS20:    "main.js",
	LangNodeJS20ESM: "main.mjs",
	LangPython3:     "main.py",
	LangC11:         "main.c",
	LangCPP17:       "main.cpp",
}

// ParseCodeLanguage validates a raw language value.
func ParseCodeLanguage(raw string) (CodeLanguage, error) {
	lang := CodeLanguage(raw)
	if _, ok := sourceFileNames[lang]; !ok {
		return "", appErr.Newf(appErr.LanguageUnsupported, "unsupported code language: %s", raw)
	}
	return lang, nil
}

// SourceFileName returns the well-known file name the in-sandbox runner
// expects for this language.
func (l CodeLanguage) SourceFileName() string {
	return sourceFileNames[l]
}

// HasCompileStep reports whether the runner compiles (or byte-compiles)
// before executing test cases.
func (l CodeLanguage) HasCompileStep() bool {
	switch l {
	case LangJava17, LangPython3, LangC11, LangCPP17:
		return true
	default:
		return false
	}
}

// CompileBonus returns the wall-time allowance for the compile step.
func (l CodeLanguage) CompileBonus() time.Duration {
	if l.HasCompileStep() {
		return compileTimeBonus
	}
	return 0
}
