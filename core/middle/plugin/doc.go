// Package plugin 定义了服务端插件的接口
//
//	插件按照注册的顺序被调用, 任意一个插件在Event4S中返回false都会中断处理并关闭连接
//	Receive4S返回的错误会作为响应的错误码直接返回给客户端, 请求不会被分发
//	AfterDispatch4S/AfterSend4S只用于观察, 不能影响处理的结果
package plugin
