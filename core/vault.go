package core

// EncryptedKey is custodial key material at rest. All fields are base64.
type EncryptedKey struct {
	CipherText string `json:"cipherText"`
	Salt       string `json:"salt"`
	IV         string `json:"iv"`
}

// AgentKey binds an encrypted signing key to the on-chain account it controls
type AgentKey struct {
	AccountAddress string `json:"accountAddress"`
	EncryptedKey
}
