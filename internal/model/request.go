package model

// PromptRequest POST /api/prompt 的请求体
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// GenerationRequest 交给生成引擎的一次请求
type GenerationRequest struct {
	Prompt            string
	SystemInstruction string
}
