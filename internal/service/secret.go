package service

import "crypto/ecdsa"

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// zeroKey wipes the private scalar in place and leaves D equal to zero.
func zeroKey(k *ecdsa.PrivateKey) {
	if k == nil || k.D == nil {
		return
	}
	b := k.D.Bits()
	for i := range b {
		b[i] = 0
	}
	k.D.SetInt64(0)
}
