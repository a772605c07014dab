package cryptotest

// Plaintext stores values unencrypted. Test use only.
type Plaintext struct{}

func (Plaintext) Seal(plaintext, _ string) (string, error) { return plaintext, nil }
func (Plaintext) Open(ciphertext, _ string) (string, error) { return ciphertext, nil }
