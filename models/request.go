package models

// ConsultarRequest is the path input of GET /consultar/:ruc.
type ConsultarRequest struct {
	// RUC is the supplier's taxpayer number: exactly 11 ASCII digits.
	RUC string `uri:"ruc" binding:"required,len=11,number"`
}

// InvalidRUCMessage is returned for any RUC that fails validation.
const InvalidRUCMessage = "RUC debe tener 11 dígitos"
