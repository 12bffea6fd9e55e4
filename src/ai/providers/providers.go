package providers

import (
	_ "github.com/veristake/veristake/src/ai/gemini"
	_ "github.com/veristake/veristake/src/ai/openai"
)
