package response

// Resp 所有接口（含 SSE 建连失败）的统一包体，HTTP 状态恒为 200
type Resp struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// New data 为 nil 时输出 {}，前端不用判 null
func New(code int, msg string, data any) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Code: code, Msg: msg, Data: data}
}

func OK(data any) Resp {
	return New(CodeOK, CodeMsgMap[CodeOK], data)
}

// Error customMsg 为空时用默认文案；未登记的码退回 500 的文案
func Error(code int, customMsg string) Resp {
	msg := customMsg
	if msg == "" {
		msg = Text(code)
	}
	return New(code, msg, nil)
}

// Text 业务码的默认文案
func Text(code int) string {
	if m, ok := CodeMsgMap[code]; ok {
		return m
	}
	return CodeMsgMap[CodeServerError]
}
