package handler

type ContextKey string

var (
	SessionCtxKey  ContextKey = "session"
	MyInfoCtx      ContextKey = "myInfo"
	AccountInfoCtx ContextKey = "accountInfo"
)
