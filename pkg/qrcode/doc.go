// Package qrcode renders PNG QR codes, used for authenticator enrollment URIs.
//
//	png, err := qrcode.Generate(uri, 256)
//	dataURI, err := qrcode.GenerateBase64Image(uri, 256)
//
// Codes use medium error correction. Size is the PNG edge in pixels; zero selects DefaultSize.
package qrcode
