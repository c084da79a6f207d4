package engine

// LlamaBuilt reports whether the binary carries the in-process llama backend.
func LlamaBuilt() bool { return llamaBuilt }
