package ollama

// Model names served by the local backend.
const (
	// ModelChat answers free-form text.
	ModelChat = "llama3:8b"
	// ModelChatZhTW is the Traditional Chinese chat variant, used for
	// explicit question-marker messages.
	ModelChatZhTW = "chinese_tw_Llama"
	// ModelVision answers questions about images.
	ModelVision = "llava"
	// ModelPrompt rewrites requests into image-generation prompts.
	ModelPrompt = "sdxl-prompter"
)
