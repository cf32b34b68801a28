package pumpamm

type ProgramError struct {
	Code uint32
	Name string
	Msg  string
}

const ErrCodeExceededSlippage uint32 = 6004

var Errors = map[uint32]ProgramError{
	6000: {Code: 6000, Name: "FeeBasisPointsExceedsMaximum", Msg: ""},
	6001: {Code: 6001, Name: "ZeroBaseAmount", Msg: ""},
	6002: {Code: 6002, Name: "ZeroQuoteAmount", Msg: ""},
	6003: {Code: 6003, Name: "TooLittlePoolTokenLiquidity", Msg: ""},
	6004: {Code: 6004, Name: "ExceededSlippage", Msg: ""},
	6005: {Code: 6005, Name: "InvalidAdmin", Msg: ""},
	6006: {Code: 6006, Name: "UnsupportedBaseMint", Msg: ""},
	6007: {Code: 6007, Name: "UnsupportedQuoteMint", Msg: ""},
	6008: {Code: 6008, Name: "InvalidBaseMint", Msg: ""},
	6009: {Code: 6009, Name: "InvalidQuoteMint", Msg: ""},
	6010: {Code: 6010, Name: "InvalidLpMint", Msg: ""},
	6011: {Code: 6011, Name: "AllProtocolFeeRecipientsShouldBeNonZero", Msg: ""},
	6012: {Code: 6012, Name: "UnsortedNotUniqueProtocolFeeRecipients", Msg: ""},
	6013: {Code: 6013, Name: "InvalidProtocolFeeRecipient", Msg: ""},
	6014: {Code: 6014, Name: "InvalidPoolBaseTokenAccount", Msg: ""},
	6015: {Code: 6015, Name: "InvalidPoolQuoteTokenAccount", Msg: ""},
	6016: {Code: 6016, Name: "BuyMoreBaseAmountThanPoolReserves", Msg: ""},
	6017: {Code: 6017, Name: "DisabledCreatePool", Msg: ""},
	6018: {Code: 6018, Name: "DisabledDeposit", Msg: ""},
	6019: {Code: 6019, Name: "DisabledWithdraw", Msg: ""},
	6020: {Code: 6020, Name: "DisabledBuy", Msg: ""},
	6021: {Code: 6021, Name: "DisabledSell", Msg: ""},
	6022: {Code: 6022, Name: "SameMint", Msg: ""},
	6023: {Code: 6023, Name: "Overflow", Msg: ""},
	6024: {Code: 6024, Name: "Truncation", Msg: ""},
	6025: {Code: 6025, Name: "DivisionByZero", Msg: ""},
}

// ErrorFromCode looks up an Anchor custom error code.
func ErrorFromCode(code uint32) (ProgramError, bool) {
	err, ok := Errors[code]
	return err, ok
}
