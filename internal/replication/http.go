package replication

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"smilestore/internal/domain"
)

const webhdfsPrefix = "/webhdfs/v1"

// RemoteError is a non-2xx WebHDFS response.
type RemoteError struct {
	Status        int
	Exception     string
	JavaClassName string
	Message       string
}

func (e *RemoteError) Error() string {
	if e.Exception == "" {
		return fmt.Sprintf("webhdfs: %s", http.StatusText(e.Status))
	}
	return fmt.Sprintf("webhdfs: %d %s: %s", e.Status, e.Exception, e.Message)
}

// Is maps FileNotFoundException onto domain.ErrNotFound.
func (e *RemoteError) Is(target error) bool {
	return target == domain.ErrNotFound && e.Exception == "FileNotFoundException"
}

type remoteException struct {
	RemoteException struct {
		Exception     string `json:"exception"`
		JavaClassName string `json:"javaClassName"`
		Message       string `json:"message"`
	} `json:"RemoteException"`
}

// FileStatus is one entry of a LISTSTATUS or GETFILESTATUS response.
type FileStatus struct {
	PathSuffix  string `json:"pathSuffix"`
	Type        string `json:"type"`
	Length      int64  `json:"length"`
	Replication int    `json:"replication"`
}

type fileStatuses struct {
	FileStatuses struct {
		FileStatus []FileStatus `json:"FileStatus"`
	} `json:"FileStatuses"`
}

type booleanResult struct {
	Boolean bool `json:"boolean"`
}

type locationResult struct {
	Location string `json:"Location"`
}

// opURL builds <namenode>/webhdfs/v1<remote>?op=<op>&user.name=<user>&...
func (c *Client) opURL(remote, op string, extra url.Values) string {
	u := *c.base
	u.Path = webhdfsPrefix + remote
	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	q.Set("op", op)
	if c.cfg.User != "" {
		q.Set("user.name", c.cfg.User)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, u string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	return c.http.Do(req)
}

// call issues one WebHDFS request and decodes a JSON result into out.
func (c *Client) call(ctx context.Context, method, remote, op string, extra url.Values, out any) error {
	u := c.opURL(remote, op, extra)
	resp, err := c.do(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("webhdfs %s %s: %w", op, remote, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return decodeRemoteError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("webhdfs %s %s: decode: %w", op, remote, err)
	}
	return nil
}

func (c *Client) getFileStatus(ctx context.Context, remote string) (FileStatus, error) {
	var out struct {
		FileStatus FileStatus `json:"FileStatus"`
	}
	err := c.call(ctx, http.MethodGet, remote, "GETFILESTATUS", nil, &out)
	return out.FileStatus, err
}

func (c *Client) mkdirs(ctx context.Context, remote string) error {
	var out booleanResult
	if err := c.call(ctx, http.MethodPut, remote, "MKDIRS", nil, &out); err != nil {
		return err
	}
	if !out.Boolean {
		return fmt.Errorf("webhdfs MKDIRS %s: refused", remote)
	}
	return nil
}

func (c *Client) listStatus(ctx context.Context, remote string) ([]FileStatus, error) {
	var out fileStatuses
	if err := c.call(ctx, http.MethodGet, remote, "LISTSTATUS", nil, &out); err != nil {
		return nil, err
	}
	return out.FileStatuses.FileStatus, nil
}

func (c *Client) deletePath(ctx context.Context, remote string) (bool, error) {
	var out booleanResult
	if err := c.call(ctx, http.MethodDelete, remote, "DELETE", nil, &out); err != nil {
		return false, err
	}
	return out.Boolean, nil
}

// create uploads data to remote. The namenode replies with a redirect (or a
// JSON Location) naming the datanode that receives the bytes.
func (c *Client) create(ctx context.Context, remote string, data []byte) error {
	u := c.opURL(remote, "CREATE", url.Values{
		"overwrite":   {"true"},
		"replication": {strconv.Itoa(c.cfg.Factor)},
	})
	resp, err := c.do(ctx, http.MethodPut, u, nil)
	if err != nil {
		return fmt.Errorf("webhdfs CREATE %s: %w", remote, err)
	}
	loc, err := createLocation(resp)
	resp.Body.Close()
	if err != nil {
		return err
	}

	resp, err = c.do(ctx, http.MethodPut, loc, data)
	if err != nil {
		return fmt.Errorf("webhdfs CREATE %s: upload: %w", remote, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return decodeRemoteError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func createLocation(resp *http.Response) (string, error) {
	switch {
	case resp.StatusCode/100 == 3:
		loc, err := resp.Location()
		if err != nil {
			return "", fmt.Errorf("webhdfs CREATE: redirect: %w", err)
		}
		return loc.String(), nil
	case resp.StatusCode/100 == 2:
		var out locationResult
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Location == "" {
			return "", errors.New("webhdfs CREATE: response carried no datanode location")
		}
		loc, err := resp.Request.URL.Parse(out.Location)
		if err != nil {
			return "", fmt.Errorf("webhdfs CREATE: location: %w", err)
		}
		return loc.String(), nil
	default:
		return "", decodeRemoteError(resp)
	}
}

func decodeRemoteError(resp *http.Response) error {
	e := &RemoteError{Status: resp.StatusCode}
	var body remoteException
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		e.Exception = body.RemoteException.Exception
		e.JavaClassName = body.RemoteException.JavaClassName
		e.Message = body.RemoteException.Message
	}
	return e
}
