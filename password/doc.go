// Package password verifies stored password hashes and produces new ones.
//
// Two encodings are understood:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>   (new hashes)
//	$2a$ / $2b$ / $2y$ bcrypt                                        (legacy hashes)
//
// [Auto] picks the verifier from the hash prefix, so accounts created before
// the switch to argon2id keep working.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other goSession package.
//   - Log plaintext passwords.
package password
