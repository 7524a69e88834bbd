// Package crypto implements the authenticated encryption used for every
// blob smilestore writes to disk.
//
// Contents
//
//   - Key handling: parsing, generation and scrypt derivation (ParseKey,
//     GenerateKey, DeriveKey)
//   - The Manager, which seals values into versioned XChaCha20-Poly1305
//     envelopes and opens them again (Encrypt, Decrypt)
//   - Short key fingerprints for display/logging (Fingerprint)
//   - Best-effort memory wiping for key material (Wipe)
//
// # Envelope format
//
// A blob is a JSON object
//
//	{"v":1,"ts":1730000000,"nonce":"<base64>","ct":"<base64>"}
//
// where ct is the AEAD output (ciphertext plus 16-byte tag). The version and
// timestamp are bound as additional data, so a modified header fails to open
// just like a modified ciphertext. Every call draws a fresh 24-byte nonce, so
// sealing the same value twice yields different blobs.
package crypto
