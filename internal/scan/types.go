package scan

// SymbolType classifies a decoded code.
type SymbolType string

const (
	SymbolBarcode SymbolType = "barcode"
	SymbolQRCode  SymbolType = "qrcode"
)

// Result represents a single decoded barcode or QR code.
type Result struct {
	Symbol SymbolType `json:"symbolType"`
	Data   string     `json:"data"`
}
